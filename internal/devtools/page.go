package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/poll"
)

// Page is one isolated target. It is owned by a single request flow.
type Page struct {
	page       *rod.Page
	navTimeout time.Duration
}

var readyStateScript = Script{
	Name: "readyState",
	Fn:   `() => document.readyState`,
}

var locationScript = Script{
	Name: "location",
	Fn:   `() => location.href`,
}

// TargetID returns the CDP target id.
func (p *Page) TargetID() string {
	return string(p.page.TargetID)
}

// Navigate loads url and waits for an interactive document.
func (p *Page) Navigate(ctx context.Context, url string) error {
	start := time.Now()
	navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()

	if err := p.page.Context(navCtx).Navigate(url); err != nil {
		return wrap("navigate", err)
	}

	_, err := poll.Until(navCtx, poll.Options{
		Timeout:  p.navTimeout,
		Interval: 150 * time.Millisecond,
		Label:    "navigate " + url,
	}, func(ctx context.Context) (bool, any, error) {
		var state string
		if err := EvalInto(ctx, p, readyStateScript, &state); err != nil {
			return false, state, err
		}
		return state == "interactive" || state == "complete", state, nil
	})
	if err != nil {
		return err
	}

	L_debug("devtools: navigated", "url", url, "took", time.Since(start))
	return nil
}

// URL returns the current document location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var href string
	err := EvalInto(ctx, p, locationScript, &href)
	return href, err
}

// Eval runs s in the page and returns its by-value result as JSON.
func (p *Page) Eval(ctx context.Context, s Script) (json.RawMessage, error) {
	obj, err := p.page.Context(ctx).Evaluate(rod.Eval(s.Fn, s.Args...).ByPromise())
	if err != nil {
		return nil, wrap("eval "+s.Name, err)
	}
	raw, err := json.Marshal(obj.Value.Val())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProtocol, "eval "+s.Name, err)
	}
	return raw, nil
}

// InsertText sends Input.insertText to the focused element.
func (p *Page) InsertText(ctx context.Context, text string) error {
	return wrap("insert text", p.page.Context(ctx).InsertText(text))
}

// Press dispatches a key press to the focused element.
func (p *Page) Press(ctx context.Context, key input.Key) error {
	return wrap("press key", p.page.Context(ctx).Keyboard.Press(key))
}

// SetFileInput assigns local files to the file input matched by selector.
func (p *Page) SetFileInput(ctx context.Context, selector string, paths []string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return wrap("find file input", err)
	}
	return wrap("set files", el.SetFiles(paths))
}

// Cookies returns the browser cookies visible to urls.
func (p *Page) Cookies(ctx context.Context, urls []string) ([]*proto.NetworkCookie, error) {
	cookies, err := p.page.Context(ctx).Cookies(urls)
	if err != nil {
		return nil, wrap("get cookies", err)
	}
	return cookies, nil
}

// SetCookies installs cookies into the page's browser context.
func (p *Page) SetCookies(ctx context.Context, cookies []*proto.NetworkCookieParam) error {
	return wrap("set cookies", p.page.Context(ctx).SetCookies(cookies))
}

// Close closes the target.
func (p *Page) Close() error {
	return wrap("close target", p.page.Close())
}

// wrap classifies rod failures as protocol errors. Context errors stay
// reachable through errors.Is so callers can tell cancellation apart.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, op, err)
	}
	return apperr.Wrap(apperr.KindProtocol, op, err)
}
