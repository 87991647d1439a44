// Package flow runs a provider's DOM stages in their fixed order:
// WaitForUI, SelectMode, TypePrompt, SubmitPrompt, WaitForResponse,
// ExtractSideChannel. Nothing is retried; the first failure ends the run.
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/roelfdiedericks/chatpilot/internal/attach"
	"github.com/roelfdiedericks/chatpilot/internal/devtools"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/poll"
)

// Stage names one step of a run.
type Stage string

const (
	StageWaitForUI          Stage = "wait_for_ui"
	StageSelectMode         Stage = "select_mode"
	StageTypePrompt         Stage = "type_prompt"
	StageSubmitPrompt       Stage = "submit_prompt"
	StageWaitForResponse    Stage = "wait_for_response"
	StageVerifyAttachments  Stage = "verify_attachments"
	StageExtractSideChannel Stage = "extract_side_channel"
)

// Well-known State keys.
const (
	StateBaselineTurns = "baselineTurns"
	StateBaselineUser  = "baselineUserTurns"
)

// Uploader attaches files to the composer and checks the sent transcript.
type Uploader interface {
	Upload(ctx context.Context, t devtools.Target, a attach.Attachment) error
	VerifySent(ctx context.Context, t devtools.Target, atts []attach.Attachment) error
}

// Context is shared by every stage of one run. State is the only channel
// between stages.
type Context struct {
	Prompt      string
	Target      devtools.Target
	Delay       func(ctx context.Context, d time.Duration) error
	Log         LineFunc
	State       map[string]any
	Attachments []attach.Attachment
	Uploader    Uploader
}

// Int reads an integer State value (0 when unset).
func (c *Context) Int(key string) int {
	n, _ := c.State[key].(int)
	return n
}

// Set stores a State value.
func (c *Context) Set(key string, v any) {
	if c.State == nil {
		c.State = map[string]any{}
	}
	c.State[key] = v
}

// Sleep waits through Delay.
func (c *Context) Sleep(ctx context.Context, d time.Duration) error {
	if c.Delay == nil {
		return poll.Sleep(ctx, d)
	}
	return c.Delay(ctx, d)
}

// Response is the extracted answer.
type Response struct {
	Text string
	HTML string
}

// Adapter drives one provider's page. Required stages only; see
// ModeSelector and SideChannelExtractor for the optional ones.
type Adapter interface {
	Name() string
	WaitForUI(ctx context.Context, c *Context) error
	TypePrompt(ctx context.Context, c *Context) error
	SubmitPrompt(ctx context.Context, c *Context) error
	WaitForResponse(ctx context.Context, c *Context) (Response, error)
}

// ModeSelector is implemented by adapters that switch a UI mode before typing.
type ModeSelector interface {
	SelectMode(ctx context.Context, c *Context) error
}

// SideChannelExtractor is implemented by adapters that can reveal auxiliary
// output such as a reasoning trace. It never fails; ok is false when
// nothing was found.
type SideChannelExtractor interface {
	ExtractSideChannel(ctx context.Context, c *Context) (text string, ok bool)
}

// Outcome is the result of a successful run.
type Outcome struct {
	Response
	SideChannel string
	Stages      []Stage
	Durations   map[Stage]time.Duration
}

// StageError records which stage failed. The wrapped error keeps its kind.
type StageError struct {
	Provider string
	Stage    Stage
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Run executes the stages in order.
func Run(ctx context.Context, a Adapter, c *Context) (*Outcome, error) {
	if c.State == nil {
		c.State = map[string]any{}
	}
	out := &Outcome{Durations: map[Stage]time.Duration{}}
	name := a.Name()

	step := func(stage Stage, fn func() error) error {
		start := time.Now()
		c.Log.Printf("%s: %s", name, stage)
		if err := fn(); err != nil {
			L_debug("flow: stage failed", "provider", name, "stage", stage, "error", err)
			return &StageError{Provider: name, Stage: stage, Err: err}
		}
		out.Stages = append(out.Stages, stage)
		out.Durations[stage] = time.Since(start)
		L_elapsed(start, "flow: stage done", "provider", name, "stage", stage)
		return nil
	}

	if err := step(StageWaitForUI, func() error { return a.WaitForUI(ctx, c) }); err != nil {
		return nil, err
	}

	if ms, ok := a.(ModeSelector); ok {
		if err := step(StageSelectMode, func() error { return ms.SelectMode(ctx, c) }); err != nil {
			return nil, err
		}
	}

	err := step(StageTypePrompt, func() error {
		if err := uploadAttachments(ctx, c); err != nil {
			return err
		}
		return a.TypePrompt(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	if err := step(StageSubmitPrompt, func() error { return a.SubmitPrompt(ctx, c) }); err != nil {
		return nil, err
	}

	err = step(StageWaitForResponse, func() error {
		resp, err := a.WaitForResponse(ctx, c)
		out.Response = resp
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(c.Attachments) > 0 {
		err := step(StageVerifyAttachments, func() error {
			return c.Uploader.VerifySent(ctx, c.Target, c.Attachments)
		})
		if err != nil {
			return nil, err
		}
	}

	if sc, ok := a.(SideChannelExtractor); ok {
		step(StageExtractSideChannel, func() error {
			if text, found := sc.ExtractSideChannel(ctx, c); found {
				out.SideChannel = text
			}
			return nil
		})
	}

	return out, nil
}

// uploadAttachments attaches every file before the prompt is typed so the
// composer holds both when send is clicked.
func uploadAttachments(ctx context.Context, c *Context) error {
	if len(c.Attachments) == 0 {
		return nil
	}
	if c.Uploader == nil {
		return fmt.Errorf("%d attachments but no uploader", len(c.Attachments))
	}
	for _, att := range c.Attachments {
		if err := c.Uploader.Upload(ctx, c.Target, att); err != nil {
			return err
		}
		c.Log.Printf("Attached %s", att.Name())
	}
	return nil
}
