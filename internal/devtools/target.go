package devtools

import (
	"context"
	"encoding/json"

	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Evaluator runs scripts in a page.
type Evaluator interface {
	Eval(ctx context.Context, s Script) (json.RawMessage, error)
}

// Target is the page surface the engine drives. *Page implements it; tests
// substitute devtoolstest.Fake.
type Target interface {
	Evaluator
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	InsertText(ctx context.Context, text string) error
	Press(ctx context.Context, key input.Key) error
	SetFileInput(ctx context.Context, selector string, paths []string) error
	Cookies(ctx context.Context, urls []string) ([]*proto.NetworkCookie, error)
	SetCookies(ctx context.Context, cookies []*proto.NetworkCookieParam) error
}

// EvalInto evaluates s and decodes the by-value result into out.
func EvalInto(ctx context.Context, t Evaluator, s Script, out any) error {
	raw, err := t.Eval(ctx, s)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &decodeError{script: s.Name, err: err}
	}
	return nil
}

type decodeError struct {
	script string
	err    error
}

func (e *decodeError) Error() string {
	return "decode result of " + e.script + ": " + e.err.Error()
}

func (e *decodeError) Unwrap() error { return e.err }
