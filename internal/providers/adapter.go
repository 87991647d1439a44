package providers

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/input"
	"golang.org/x/time/rate"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/dom"
	"github.com/roelfdiedericks/chatpilot/internal/flow"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/poll"
)

// Options tunes the adapter's waits and optional stages.
type Options struct {
	UITimeout       time.Duration
	ResponseTimeout time.Duration
	ControlTimeout  time.Duration // menus, send button, submission check
	Stable          time.Duration // response must stay done this long
	Interval        time.Duration
	SignInGrace     time.Duration // sign-in seen this long fails WaitForUI early
	ProgressEvery   time.Duration
	SideChannelWait time.Duration

	ModePhrase  string // select this UI mode; "" skips SelectMode
	SideChannel bool   // extract the reasoning trace
}

func (o *Options) defaults() {
	if o.UITimeout <= 0 {
		o.UITimeout = 45 * time.Second
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = 10 * time.Minute
	}
	if o.ControlTimeout <= 0 {
		o.ControlTimeout = 8 * time.Second
	}
	if o.Stable <= 0 {
		o.Stable = time.Second
	}
	if o.Interval <= 0 {
		o.Interval = 250 * time.Millisecond
	}
	if o.SignInGrace <= 0 {
		o.SignInGrace = 3 * time.Second
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 10 * time.Second
	}
	if o.SideChannelWait <= 0 {
		o.SideChannelWait = 800 * time.Millisecond
	}
}

// adapter implements the required stages for any Table.
type adapter struct {
	t    Table
	opts Options
}

type withMode struct{ *adapter }
type withSideChannel struct{ *adapter }
type withBoth struct{ *adapter }

func (a withMode) SelectMode(ctx context.Context, c *flow.Context) error {
	return a.selectMode(ctx, c)
}

func (a withSideChannel) ExtractSideChannel(ctx context.Context, c *flow.Context) (string, bool) {
	return a.extractSideChannel(ctx, c)
}

func (a withBoth) SelectMode(ctx context.Context, c *flow.Context) error {
	return a.selectMode(ctx, c)
}

func (a withBoth) ExtractSideChannel(ctx context.Context, c *flow.Context) (string, bool) {
	return a.extractSideChannel(ctx, c)
}

// New returns the adapter for t. The optional stages are present only when
// both the table and opts ask for them.
func New(t Table, opts Options) flow.Adapter {
	opts.defaults()
	a := &adapter{t: t, opts: opts}
	hasMode := t.Mode != nil && opts.ModePhrase != ""
	hasSide := t.SideChannel != nil && opts.SideChannel
	switch {
	case hasMode && hasSide:
		return withBoth{a}
	case hasMode:
		return withMode{a}
	case hasSide:
		return withSideChannel{a}
	}
	return a
}

func (a *adapter) Name() string {
	return a.t.Name
}

// uiState is the WaitForUI poll state.
type uiState struct {
	Input  dom.ElementState
	URL    string
	SignIn bool
}

// WaitForUI waits for an enabled prompt input. A sign-in page that stays
// up for SignInGrace, or that was seen at any point before the deadline,
// fails with RequiresSignIn instead of Timeout.
func (a *adapter) WaitForUI(ctx context.Context, c *flow.Context) error {
	var signInSince time.Time
	everSignIn := false

	_, err := poll.Until(ctx, poll.Options{Timeout: a.opts.UITimeout, Interval: a.opts.Interval, Label: "prompt input"},
		func(ctx context.Context) (bool, any, error) {
			st := uiState{}
			var err error
			if st.Input, err = dom.QueryElement(ctx, c.Target, a.t.Input); err != nil {
				return false, st, err
			}
			if st.Input.Found && st.Input.Visible && st.Input.Enabled {
				return true, st, nil
			}

			if st.URL, err = c.Target.URL(ctx); err != nil {
				return false, st, err
			}
			st.SignIn = a.onSignInURL(st.URL)
			if !st.SignIn {
				if st.SignIn, err = dom.SignInVisible(ctx, c.Target, a.t.SignIn); err != nil {
					return false, st, err
				}
			}

			if !st.SignIn {
				signInSince = time.Time{}
				return false, st, nil
			}
			everSignIn = true
			if signInSince.IsZero() {
				signInSince = time.Now()
				c.Log.Printf("%s is showing a sign-in page", a.t.Name)
			}
			if time.Since(signInSince) >= a.opts.SignInGrace {
				return false, st, a.signInError(st.URL)
			}
			return false, st, nil
		})
	if err != nil && apperr.Is(err, apperr.KindTimeout) && everSignIn {
		return a.signInError("")
	}
	return err
}

func (a *adapter) onSignInURL(u string) bool {
	for _, p := range a.t.SignInPaths {
		if p != "" && strings.Contains(u, p) {
			return true
		}
	}
	return false
}

func (a *adapter) signInError(u string) error {
	msg := "redirected to sign-in"
	if u != "" {
		msg += " (" + u + ")"
	}
	return apperr.New(apperr.KindRequiresSignIn, "wait for ui", "%s: %s", a.t.Name, msg)
}

// selectMode opens the mode menu, clicks the item matching ModePhrase and
// checks the active indicator.
func (a *adapter) selectMode(ctx context.Context, c *flow.Context) error {
	m := a.t.Mode
	phrase := a.opts.ModePhrase

	if st, err := dom.QueryElement(ctx, c.Target, m.Active); err != nil {
		return err
	} else if containsFold(st.Text, phrase) {
		L_debug("providers: mode already active", "provider", a.t.Name, "mode", phrase)
		return nil
	}

	res, err := dom.Click(ctx, c.Target, m.Menu, true)
	if err != nil {
		return err
	}
	if !res.Clicked {
		return unsupported("mode menu", res.Reason)
	}

	var last dom.ClickResult
	_, err = poll.Until(ctx, poll.Options{Timeout: a.opts.ControlTimeout, Interval: a.opts.Interval, Label: "mode item"},
		func(ctx context.Context) (bool, any, error) {
			r, err := dom.ClickByText(ctx, c.Target, m.Items, phrase)
			last = r
			return r.Clicked, r, err
		})
	if err != nil {
		if apperr.Is(err, apperr.KindTimeout) {
			return unsupported("mode item "+quote(phrase), "saw "+strings.Join(last.Candidates, " | "))
		}
		return err
	}

	if len(m.Active) == 0 {
		return nil
	}
	_, err = poll.Until(ctx, poll.Options{Timeout: a.opts.ControlTimeout, Interval: a.opts.Interval, Label: "active mode"},
		func(ctx context.Context) (bool, any, error) {
			st, err := dom.QueryElement(ctx, c.Target, m.Active)
			return st.Found && containsFold(st.Text, phrase), st.Text, err
		})
	if err != nil && apperr.Is(err, apperr.KindTimeout) {
		return unsupported("active mode indicator", "expected "+quote(phrase))
	}
	if err == nil {
		c.Log.Printf("Selected %s mode", phrase)
	}
	return err
}

// TypePrompt inserts the prompt with Input.insertText, falling back to a
// DOM value write with an input event.
func (a *adapter) TypePrompt(ctx context.Context, c *flow.Context) error {
	focused, err := dom.Focus(ctx, c.Target, a.t.Input)
	if err != nil {
		return err
	}
	if !focused {
		return unsupported("prompt input", "could not focus")
	}

	if err := c.Target.InsertText(ctx, c.Prompt); err != nil {
		L_debug("providers: insertText failed, using DOM fallback", "error", err)
	} else if ok, err := a.fieldFilled(ctx, c); err != nil || ok {
		return err
	}

	ok, err := dom.SetText(ctx, c.Target, a.t.Input, c.Prompt)
	if err != nil {
		return err
	}
	if !ok {
		return unsupported("prompt input", "field still empty after typing")
	}
	return nil
}

func (a *adapter) fieldFilled(ctx context.Context, c *flow.Context) (bool, error) {
	_, err := poll.Until(ctx, poll.Options{Timeout: time.Second, Interval: 50 * time.Millisecond, Label: "prompt text"},
		func(ctx context.Context) (bool, any, error) {
			s, err := dom.FieldText(ctx, c.Target, a.t.Input)
			return s != "", s, err
		})
	if apperr.Is(err, apperr.KindTimeout) {
		return false, nil
	}
	return err == nil, err
}

// SubmitPrompt records the turn baselines, clicks send (or presses Enter)
// and waits for evidence the message left the composer.
func (a *adapter) SubmitPrompt(ctx context.Context, c *flow.Context) error {
	turns, err := dom.Count(ctx, c.Target, a.t.Turns)
	if err != nil {
		return err
	}
	users, err := dom.Count(ctx, c.Target, a.t.UserTurns)
	if err != nil {
		return err
	}
	c.Set(flow.StateBaselineTurns, turns)
	c.Set(flow.StateBaselineUser, users)

	clicked := false
	if len(a.t.Send) > 0 {
		// Send stays disabled while attachments finish processing
		_, err = poll.Until(ctx, poll.Options{Timeout: a.opts.ControlTimeout, Interval: a.opts.Interval, Label: "send button"},
			func(ctx context.Context) (bool, any, error) {
				r, err := dom.Click(ctx, c.Target, a.t.Send, true)
				return r.Clicked, r, err
			})
		switch {
		case err == nil:
			clicked = true
		case !apperr.Is(err, apperr.KindTimeout):
			return err
		}
	}

	if !clicked {
		L_debug("providers: send button unavailable, pressing Enter", "provider", a.t.Name)
		if _, err := dom.Focus(ctx, c.Target, a.t.Input); err != nil {
			return err
		}
		if err := c.Target.Press(ctx, input.Enter); err != nil {
			return unsupported("send control", "no send button and Enter failed: "+err.Error())
		}
	}

	_, err = poll.Until(ctx, poll.Options{Timeout: a.opts.ControlTimeout, Interval: a.opts.Interval, Label: "submission"},
		func(ctx context.Context) (bool, any, error) {
			text, err := dom.FieldText(ctx, c.Target, a.t.Input)
			if err != nil {
				return false, nil, err
			}
			if text == "" {
				return true, "input cleared", nil
			}
			n, err := dom.Count(ctx, c.Target, a.t.UserTurns)
			if err != nil {
				return false, nil, err
			}
			return n > users, n, nil
		})
	if apperr.Is(err, apperr.KindTimeout) {
		return unsupported("send control", "prompt was not submitted")
	}
	return err
}

// Status of the newest assistant turn.
const (
	statusWaiting    = "waiting"
	statusGenerating = "generating"
	statusStreaming  = "streaming"
	statusDone       = "done"
)

func responseStatus(st dom.ResponseState, baseline int) string {
	switch {
	case st.Count <= baseline:
		return statusWaiting
	case st.Done && st.Text != "" && !st.Spinner:
		return statusDone
	case st.Thinking || st.Text == "":
		return statusGenerating
	}
	return statusStreaming
}

// WaitForResponse polls the newest assistant turn past the baseline and
// returns once it has been done for the stability window.
func (a *adapter) WaitForResponse(ctx context.Context, c *flow.Context) (flow.Response, error) {
	baseline := c.Int(flow.StateBaselineTurns)
	q := a.t.ResponseQuery()
	progress := rate.Sometimes{Interval: a.opts.ProgressEvery}
	start := time.Now()

	state, err := poll.Until(ctx, poll.Options{
		Timeout:  a.opts.ResponseTimeout,
		Interval: a.opts.Interval,
		Stable:   a.opts.Stable,
		Label:    "response",
	}, func(ctx context.Context) (bool, any, error) {
		st, err := dom.Response(ctx, c.Target, q)
		if err != nil {
			return false, st, err
		}
		status := responseStatus(st, baseline)
		progress.Do(func() {
			L_debug("providers: waiting for response", "provider", a.t.Name, "status", status, "chars", len(st.Text))
			c.Log.Printf("%s: %s (%s, %d chars)", a.t.Name, status, time.Since(start).Round(time.Second), len(st.Text))
		})
		return status == statusDone, st, nil
	})
	if err != nil {
		return flow.Response{}, err
	}
	st := state.(dom.ResponseState)
	return flow.Response{Text: st.Text, HTML: st.HTML}, nil
}

// extractSideChannel reveals and reads the reasoning trace. Never fails.
func (a *adapter) extractSideChannel(ctx context.Context, c *flow.Context) (string, bool) {
	sc := a.t.SideChannel
	toggle, err := dom.QueryElement(ctx, c.Target, sc.Toggle)
	if err != nil || !toggle.Found {
		return "", false
	}
	if res, err := dom.Click(ctx, c.Target, sc.Toggle, false); err != nil || !res.Clicked {
		return "", false
	}
	if err := c.Sleep(ctx, a.opts.SideChannelWait); err != nil {
		return "", false
	}
	text, err := dom.ReadText(ctx, c.Target, sc.Content)
	if err != nil {
		L_debug("providers: side channel read failed", "error", err)
		return "", false
	}
	text = stripLabel(text, toggle.Text, sc.Label)
	return text, text != ""
}

// stripLabel drops a leading copy of the toggle caption.
func stripLabel(text string, labels ...string) string {
	text = strings.TrimSpace(text)
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" && len(text) >= len(l) && strings.EqualFold(text[:len(l)], l) {
			text = strings.TrimSpace(text[len(l):])
		}
	}
	return text
}

func unsupported(control, detail string) error {
	e := apperr.New(apperr.KindUnsupportedControl, "provider", "%s", control)
	if detail != "" {
		e.Message += ": " + detail
	}
	return e
}

func containsFold(s, sub string) bool {
	return sub != "" && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func quote(s string) string {
	return `"` + s + `"`
}
