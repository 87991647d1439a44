package dom

import (
	"context"
	"strconv"

	"github.com/roelfdiedericks/chatpilot/internal/devtools"
)

// Selectors is an ordered fallback list; the first selector that matches wins.
type Selectors []string

// ElementState describes the first element matched by a selector list.
type ElementState struct {
	Found    bool   `json:"found"`
	Selector string `json:"selector,omitempty"`
	Visible  bool   `json:"visible"`
	Enabled  bool   `json:"enabled"`
	Text     string `json:"text,omitempty"`
}

// ClickResult reports whether a click landed.
type ClickResult struct {
	Clicked    bool     `json:"clicked"`
	Selector   string   `json:"selector,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Text       string   `json:"text,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// ResponseState is the view of the newest assistant turn.
type ResponseState struct {
	Count    int    `json:"count"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
	Done     bool   `json:"done"`
	Thinking bool   `json:"thinking"`
	Spinner  bool   `json:"spinner"`
}

// ResponseQuery names the selectors WaitForResponse reads.
type ResponseQuery struct {
	Turns           Selectors
	Done            Selectors
	Thinking        Selectors
	Spinner         Selectors
	ThinkingPhrases []string
}

// FileInput is a file input found (and tagged) in the page.
type FileInput struct {
	Index    int      `json:"index"`
	Multiple bool     `json:"multiple"`
	Accept   string   `json:"accept"`
	InScope  bool     `json:"inScope"`
	Files    []string `json:"files"`
}

// Snapshot is the attachment verification view of the composer.
type Snapshot struct {
	ChipCount      int      `json:"chipCount"`
	ChipTexts      []string `json:"chipTexts"`
	FileInputNames []string `json:"fileInputNames"`
	ComposerText   string   `json:"composerText"`
}

// InjectResult reports the file list after an in-page assignment.
type InjectResult struct {
	OK    bool     `json:"ok"`
	Names []string `json:"names"`
}

func QueryElement(ctx context.Context, ev devtools.Evaluator, sels Selectors) (ElementState, error) {
	var st ElementState
	err := devtools.EvalInto(ctx, ev, elementState.With([]string(sels)), &st)
	return st, err
}

func SignInVisible(ctx context.Context, ev devtools.Evaluator, sels Selectors) (bool, error) {
	if len(sels) == 0 {
		return false, nil
	}
	var ok bool
	err := devtools.EvalInto(ctx, ev, signInPresent.With([]string(sels)), &ok)
	return ok, err
}

// Click clicks the first match. With requireEnabled a disabled control is
// reported rather than clicked.
func Click(ctx context.Context, ev devtools.Evaluator, sels Selectors, requireEnabled bool) (ClickResult, error) {
	var res ClickResult
	if len(sels) == 0 {
		res.Reason = "missing"
		return res, nil
	}
	err := devtools.EvalInto(ctx, ev, click.With([]string(sels), requireEnabled), &res)
	return res, err
}

func Focus(ctx context.Context, ev devtools.Evaluator, sels Selectors) (bool, error) {
	var ok bool
	err := devtools.EvalInto(ctx, ev, focus.With([]string(sels)), &ok)
	return ok, err
}

func FieldText(ctx context.Context, ev devtools.Evaluator, sels Selectors) (string, error) {
	var s string
	err := devtools.EvalInto(ctx, ev, fieldText.With([]string(sels)), &s)
	return s, err
}

// SetText writes text through the value setter / textContent and dispatches
// an input event. Reports whether the field is non-empty afterwards.
func SetText(ctx context.Context, ev devtools.Evaluator, sels Selectors, text string) (bool, error) {
	var ok bool
	err := devtools.EvalInto(ctx, ev, setText.With([]string(sels), text), &ok)
	return ok, err
}

func Count(ctx context.Context, ev devtools.Evaluator, sels Selectors) (int, error) {
	if len(sels) == 0 {
		return 0, nil
	}
	var n int
	err := devtools.EvalInto(ctx, ev, count.With([]string(sels)), &n)
	return n, err
}

// ClickByText clicks the first item whose visible text contains phrase,
// compared case-insensitively.
func ClickByText(ctx context.Context, ev devtools.Evaluator, items Selectors, phrase string) (ClickResult, error) {
	var res ClickResult
	err := devtools.EvalInto(ctx, ev, clickByText.With([]string(items), phrase), &res)
	return res, err
}

func Response(ctx context.Context, ev devtools.Evaluator, q ResponseQuery) (ResponseState, error) {
	var st ResponseState
	err := devtools.EvalInto(ctx, ev, response.With(
		[]string(q.Turns), []string(q.Done), []string(q.Thinking), []string(q.Spinner), q.ThinkingPhrases), &st)
	return st, err
}

func ReadText(ctx context.Context, ev devtools.Evaluator, sels Selectors) (string, error) {
	var s string
	err := devtools.EvalInto(ctx, ev, readText.With([]string(sels)), &s)
	return s, err
}

func Texts(ctx context.Context, ev devtools.Evaluator, sels Selectors) ([]string, error) {
	var out []string
	err := devtools.EvalInto(ctx, ev, texts.With([]string(sels)), &out)
	return out, err
}

// MarkFileInputs tags every candidate file input with marker-<index> so later
// commands can address it by MarkerSelector.
func MarkFileInputs(ctx context.Context, ev devtools.Evaluator, scope, inputs Selectors, marker string) ([]FileInput, error) {
	var out []FileInput
	err := devtools.EvalInto(ctx, ev, markFileInputs.With([]string(scope), []string(inputs), marker), &out)
	return out, err
}

// MarkerSelector addresses an input tagged by MarkFileInputs.
func MarkerSelector(marker string, index int) string {
	return `[data-chatpilot-upload="` + marker + "-" + strconv.Itoa(index) + `"]`
}

func TakeSnapshot(ctx context.Context, ev devtools.Evaluator, chips, composer Selectors, marker string) (Snapshot, error) {
	var snap Snapshot
	err := devtools.EvalInto(ctx, ev, snapshot.With([]string(chips), []string(composer), marker), &snap)
	return snap, err
}

func DispatchInputEvents(ctx context.Context, ev devtools.Evaluator, selector string) (bool, error) {
	var ok bool
	err := devtools.EvalInto(ctx, ev, dispatch.With(selector), &ok)
	return ok, err
}

func InjectFile(ctx context.Context, ev devtools.Evaluator, selector, name, mime, b64 string) (InjectResult, error) {
	var res InjectResult
	err := devtools.EvalInto(ctx, ev, injectFile.With(selector, name, mime, b64), &res)
	return res, err
}

func DropFile(ctx context.Context, ev devtools.Evaluator, target Selectors, name, mime, b64 string) (bool, error) {
	var ok bool
	err := devtools.EvalInto(ctx, ev, dropFile.With([]string(target), name, mime, b64), &ok)
	return ok, err
}
