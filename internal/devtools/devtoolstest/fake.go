// Package devtoolstest provides an in-memory devtools.Target for tests.
package devtoolstest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/roelfdiedericks/chatpilot/internal/devtools"
)

// Handler answers one named script. The returned value is JSON-encoded as the
// by-value result.
type Handler func(args []any) (any, error)

// Fake records every call and answers scripts through registered handlers.
// Unregistered scripts evaluate to null.
type Fake struct {
	mu sync.Mutex

	handlers map[string]Handler

	ID          string
	Href        string
	Evals       []string
	Navigations []string
	Inserted    []string
	Pressed     []input.Key
	FileInputs  map[string][]string
	Jar         []*proto.NetworkCookie
	Installed   []*proto.NetworkCookieParam
	Closed      bool

	// Optional hooks
	OnInsert       func(text string) error
	OnPress        func(key input.Key) error
	OnSetFileInput func(selector string, paths []string) error
	OnNavigate     func(url string) error
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		handlers:   map[string]Handler{},
		FileInputs: map[string][]string{},
	}
}

// On registers a handler for script name.
func (f *Fake) On(name string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
	return f
}

// Return registers a handler that always answers v.
func (f *Fake) Return(name string, v any) *Fake {
	return f.On(name, func([]any) (any, error) { return v, nil })
}

// Count returns how many times script name was evaluated.
func (f *Fake) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.Evals {
		if e == name {
			n++
		}
	}
	return n
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	f.Navigations = append(f.Navigations, url)
	f.Href = url
	hook := f.OnNavigate
	f.mu.Unlock()
	if hook != nil {
		return hook(url)
	}
	return ctx.Err()
}

func (f *Fake) URL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Href, ctx.Err()
}

func (f *Fake) Eval(ctx context.Context, s devtools.Script) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Evals = append(f.Evals, s.Name)
	h := f.handlers[s.Name]
	f.mu.Unlock()

	if h == nil {
		return json.RawMessage("null"), nil
	}
	v, err := h(s.Args)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("fake: encode %s result: %w", s.Name, err)
	}
	return raw, nil
}

func (f *Fake) InsertText(ctx context.Context, text string) error {
	f.mu.Lock()
	f.Inserted = append(f.Inserted, text)
	hook := f.OnInsert
	f.mu.Unlock()
	if hook != nil {
		return hook(text)
	}
	return nil
}

func (f *Fake) Press(ctx context.Context, key input.Key) error {
	f.mu.Lock()
	f.Pressed = append(f.Pressed, key)
	hook := f.OnPress
	f.mu.Unlock()
	if hook != nil {
		return hook(key)
	}
	return nil
}

func (f *Fake) SetFileInput(ctx context.Context, selector string, paths []string) error {
	f.mu.Lock()
	f.FileInputs[selector] = append([]string(nil), paths...)
	hook := f.OnSetFileInput
	f.mu.Unlock()
	if hook != nil {
		return hook(selector, paths)
	}
	return nil
}

func (f *Fake) Cookies(ctx context.Context, urls []string) ([]*proto.NetworkCookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*proto.NetworkCookie(nil), f.Jar...), nil
}

func (f *Fake) SetCookies(ctx context.Context, cookies []*proto.NetworkCookieParam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Installed = append(f.Installed, cookies...)
	return nil
}

// SetJar replaces the live cookie jar.
func (f *Fake) SetJar(cookies ...*proto.NetworkCookie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Jar = cookies
}

// Close marks the target closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// TargetID returns ID, or "fake" when unset.
func (f *Fake) TargetID() string {
	if f.ID == "" {
		return "fake"
	}
	return f.ID
}

// IsClosed reports whether Close was called.
func (f *Fake) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Closed
}

var _ devtools.Target = (*Fake)(nil)
