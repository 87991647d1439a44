// Package attach makes a chat composer accept a local file, escalating
// through native file-input assignment, an in-page DataTransfer and a
// synthetic drag-and-drop, and refuses to report success until the page
// visibly acknowledges the file.
package attach

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/devtools"
	"github.com/roelfdiedericks/chatpilot/internal/dom"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/poll"
)

// Attachment is one file for the next message.
type Attachment struct {
	SourcePath  string
	DisplayName string
}

// Name is the name the page is expected to show.
func (a Attachment) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return filepath.Base(a.SourcePath)
}

// names lists every name the page might use for the file.
func (a Attachment) names() []string {
	base := filepath.Base(a.SourcePath)
	if a.DisplayName == "" || a.DisplayName == base {
		return []string{base}
	}
	return []string{a.DisplayName, base}
}

// Strategy is one way of handing a file to the page.
type Strategy string

const (
	StrategyNative       Strategy = "native"
	StrategyDataTransfer Strategy = "data-transfer"
	StrategyDrop         Strategy = "drag-drop"
)

// DefaultStrategies is the escalation order.
var DefaultStrategies = []Strategy{StrategyNative, StrategyDataTransfer, StrategyDrop}

// Selectors locate the composer's attachment affordances.
type Selectors struct {
	Expand    dom.Selectors `yaml:"expand" toml:"expand"`       // "+" / paperclip menu
	Composer  dom.Selectors `yaml:"composer" toml:"composer"`   // composer region
	Inputs    dom.Selectors `yaml:"inputs" toml:"inputs"`       // file inputs
	Chips     dom.Selectors `yaml:"chips" toml:"chips"`         // attachment previews
	DropZone  dom.Selectors `yaml:"dropZone" toml:"dropZone"`   // drop target, defaults to Composer
	UserTurns dom.Selectors `yaml:"userTurns" toml:"userTurns"` // sent user messages
}

// Options configures an Uploader.
type Options struct {
	Selectors      Selectors
	Policy         MatchPolicy
	Strategies     []Strategy
	VerifyTimeout  time.Duration
	Stable         time.Duration
	Interval       time.Duration
	SentTimeout    time.Duration
	MaxInlineBytes int64 // larger files skip in-page strategies
	Log            LineFunc
}

// Uploader attaches files through Options.Strategies.
type Uploader struct {
	opts Options
}

// New creates an uploader, filling defaults.
func New(opts Options) *Uploader {
	if len(opts.Strategies) == 0 {
		opts.Strategies = DefaultStrategies
	}
	if opts.Policy == (MatchPolicy{}) {
		opts.Policy = DefaultMatchPolicy()
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 10 * time.Second
	}
	if opts.Stable <= 0 {
		opts.Stable = 750 * time.Millisecond
	}
	if opts.Interval <= 0 {
		opts.Interval = 250 * time.Millisecond
	}
	if opts.SentTimeout <= 0 {
		opts.SentTimeout = 20 * time.Second
	}
	if opts.MaxInlineBytes <= 0 {
		opts.MaxInlineBytes = 32 << 20
	}
	if len(opts.Selectors.Inputs) == 0 {
		opts.Selectors.Inputs = dom.Selectors{`input[type="file"]`}
	}
	if len(opts.Selectors.DropZone) == 0 {
		opts.Selectors.DropZone = opts.Selectors.Composer
	}
	return &Uploader{opts: opts}
}

// ack is what verification saw.
type ack struct {
	UI    bool
	Input bool
	Snap  dom.Snapshot
}

// upload is the per-file working state.
type upload struct {
	att      Attachment
	path     string
	marker   string
	inputs   []dom.FileInput
	baseline dom.Snapshot
	payload  *payload
}

type payload struct {
	mime string
	b64  string
}

// Upload attaches a to the composer on t.
func (u *Uploader) Upload(ctx context.Context, t devtools.Target, a Attachment) error {
	path, err := filepath.Abs(a.SourcePath)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidConfig, "attach", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return apperr.New(apperr.KindInvalidConfig, "attach", "%s is not a readable file", a.SourcePath)
	}

	sel := u.opts.Selectors
	if res, err := dom.Click(ctx, t, sel.Expand, false); err != nil {
		return err
	} else if res.Clicked {
		L_debug("attach: expanded attachment menu", "selector", res.Selector)
		if err := poll.Sleep(ctx, 300*time.Millisecond); err != nil {
			return err
		}
	}

	up := &upload{att: a, path: path, marker: "cp-" + uuid.New().String()[:8]}
	if up.inputs, err = dom.MarkFileInputs(ctx, t, sel.Composer, sel.Inputs, up.marker); err != nil {
		return err
	}
	rankInputs(up.inputs)
	if up.baseline, err = dom.TakeSnapshot(ctx, t, sel.Chips, sel.Composer, up.marker); err != nil {
		return err
	}
	L_debug("attach: starting", "file", a.Name(), "inputs", len(up.inputs), "baselineChips", up.baseline.ChipCount)

	applied := false
	inputAcked := false
	for _, strategy := range u.opts.Strategies {
		ok, err := u.apply(ctx, t, up, strategy)
		if err != nil {
			return err
		}
		if !ok {
			L_debug("attach: strategy not applicable", "strategy", strategy, "file", a.Name())
			continue
		}
		applied = true

		requireInput := strategy != StrategyDrop
		got, err := u.verify(ctx, t, up, requireInput)
		if err != nil {
			return err
		}
		if got.Input {
			inputAcked = true
		}
		if got.UI && (got.Input || !requireInput) {
			L_info("attach: acknowledged", "file", a.Name(), "strategy", strategy)
			u.opts.Log.Printf("Attached %s via %s", a.Name(), strategy)
			return nil
		}
		L_debug("attach: not acknowledged, escalating", "strategy", strategy, "ui", got.UI, "input", got.Input)
	}

	switch {
	case !applied:
		return apperr.New(apperr.KindUnsupportedControl, "attach",
			"no file input or drop target accepted %s", a.Name())
	case inputAcked:
		return apperr.New(apperr.KindUnacknowledgedAttachment, "attach",
			"%s reached the file input but the composer never showed it", a.Name())
	default:
		return apperr.New(apperr.KindUnacknowledgedAttachment, "attach",
			"the page never acknowledged %s", a.Name())
	}
}

// apply runs one strategy. ok is false when the strategy had nothing to
// work with.
func (u *Uploader) apply(ctx context.Context, t devtools.Target, up *upload, s Strategy) (bool, error) {
	switch s {
	case StrategyNative:
		for _, in := range up.inputs {
			selector := dom.MarkerSelector(up.marker, in.Index)
			if err := t.SetFileInput(ctx, selector, []string{up.path}); err != nil {
				L_debug("attach: native assignment refused", "input", in.Index, "error", err)
				continue
			}
			if _, err := dom.DispatchInputEvents(ctx, t, selector); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil

	case StrategyDataTransfer:
		if len(up.inputs) == 0 {
			return false, nil
		}
		p, err := u.load(up)
		if err != nil || p == nil {
			return false, err
		}
		for _, in := range up.inputs {
			res, err := dom.InjectFile(ctx, t, dom.MarkerSelector(up.marker, in.Index), up.att.Name(), p.mime, p.b64)
			if err != nil {
				return false, err
			}
			if res.OK {
				return true, nil
			}
		}
		return false, nil

	case StrategyDrop:
		p, err := u.load(up)
		if err != nil || p == nil {
			return false, err
		}
		return dom.DropFile(ctx, t, u.opts.Selectors.DropZone, up.att.Name(), p.mime, p.b64)
	}
	return false, fmt.Errorf("unknown attach strategy %q", s)
}

// load reads and encodes the file once. Returns nil for oversized files.
func (u *Uploader) load(up *upload) (*payload, error) {
	if up.payload != nil {
		return up.payload, nil
	}
	fi, err := os.Stat(up.path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidConfig, "attach", err)
	}
	if fi.Size() > u.opts.MaxInlineBytes {
		L_debug("attach: file too large for in-page strategies", "file", up.path, "size", fi.Size())
		return nil, nil
	}
	data, err := os.ReadFile(up.path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidConfig, "attach", err)
	}
	up.payload = &payload{
		mime: mimetype.Detect(data).String(),
		b64:  base64.StdEncoding.EncodeToString(data),
	}
	return up.payload, nil
}

// verify polls the snapshot until the page acknowledges the file for a
// stable window or VerifyTimeout passes. Input reports whether the file
// list ever held the file.
func (u *Uploader) verify(ctx context.Context, t devtools.Target, up *upload, requireInput bool) (ack, error) {
	sel := u.opts.Selectors
	inputSeen := false
	state, err := poll.Until(ctx, poll.Options{
		Timeout:  u.opts.VerifyTimeout,
		Interval: u.opts.Interval,
		Stable:   u.opts.Stable,
		Label:    "attachment acknowledgement",
	}, func(ctx context.Context) (bool, any, error) {
		snap, err := dom.TakeSnapshot(ctx, t, sel.Chips, sel.Composer, up.marker)
		if err != nil {
			return false, nil, err
		}
		a := ack{Snap: snap, UI: u.uiAck(up, snap), Input: u.inputAck(up, snap)}
		inputSeen = inputSeen || a.Input
		return a.UI && (a.Input || !requireInput), a, nil
	})
	got, _ := state.(ack)
	got.Input = got.Input || inputSeen
	if err != nil && !apperr.Is(err, apperr.KindTimeout) {
		return got, err
	}
	return got, nil
}

func (u *Uploader) uiAck(up *upload, snap dom.Snapshot) bool {
	if snap.ChipCount > up.baseline.ChipCount {
		return true
	}
	text := snap.ComposerText + "\n" + strings.Join(snap.ChipTexts, "\n")
	for _, n := range up.att.names() {
		if u.opts.Policy.Matches(text, n) {
			return true
		}
	}
	return false
}

func (u *Uploader) inputAck(up *upload, snap dom.Snapshot) bool {
	for _, got := range snap.FileInputNames {
		for _, n := range up.att.names() {
			if strings.EqualFold(got, n) {
				return true
			}
		}
	}
	return false
}

// VerifySent polls the newest user turn until every attachment name shows.
func (u *Uploader) VerifySent(ctx context.Context, t devtools.Target, atts []Attachment) error {
	if len(atts) == 0 {
		return nil
	}
	if len(u.opts.Selectors.UserTurns) == 0 {
		L_warn("attach: no user-turn selectors, cannot verify sent attachments")
		return nil
	}

	state, err := poll.Until(ctx, poll.Options{
		Timeout:  u.opts.SentTimeout,
		Interval: u.opts.Interval,
		Label:    "sent attachments",
	}, func(ctx context.Context) (bool, any, error) {
		turns, err := dom.Texts(ctx, t, u.opts.Selectors.UserTurns)
		if err != nil {
			return false, nil, err
		}
		if len(turns) == 0 {
			return false, namesOf(atts), nil
		}
		last := turns[len(turns)-1]
		var missing []string
		for _, a := range atts {
			found := false
			for _, n := range a.names() {
				if u.opts.Policy.Matches(last, n) {
					found = true
					break
				}
			}
			if !found {
				missing = append(missing, a.Name())
			}
		}
		return len(missing) == 0, missing, nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindTimeout) {
			missing, _ := state.([]string)
			return apperr.New(apperr.KindUnacknowledgedAttachment, "verify sent",
				"sent message does not show %s", strings.Join(missing, ", "))
		}
		return err
	}
	return nil
}

func namesOf(atts []Attachment) []string {
	out := make([]string, len(atts))
	for i, a := range atts {
		out[i] = a.Name()
	}
	return out
}

// rankInputs orders candidates best first: multi-file inputs +2, inputs not
// restricted to images +1. Ties keep document order.
func rankInputs(inputs []dom.FileInput) {
	score := func(in dom.FileInput) int {
		s := 0
		if in.Multiple {
			s += 2
		}
		if !imageOnly(in.Accept) {
			s++
		}
		return s
	}
	sort.SliceStable(inputs, func(i, j int) bool {
		return score(inputs[i]) > score(inputs[j])
	})
}

func imageOnly(accept string) bool {
	accept = strings.TrimSpace(strings.ToLower(accept))
	if accept == "" {
		return false
	}
	for _, tok := range strings.Split(accept, ",") {
		tok = strings.TrimSpace(tok)
		switch {
		case strings.HasPrefix(tok, "image/"):
		case tok == ".png", tok == ".jpg", tok == ".jpeg", tok == ".gif", tok == ".webp", tok == ".heic", tok == ".svg":
		default:
			return false
		}
	}
	return true
}
