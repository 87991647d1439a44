// Package devtools is the remote-debugging connection layer. It owns the CDP
// websocket to one browser and the isolated page targets created on it.
package devtools

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/devices"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// Client is a live CDP connection to one browser process.
type Client struct {
	controlURL string
	ws         *cdp.WebSocket
	browser    *rod.Browser
}

// PageOptions controls how an isolated target is created.
type PageOptions struct {
	Stealth           bool
	Device            devices.Device
	NavigationTimeout time.Duration
}

// Connect dials the browser's websocket debugger URL.
func Connect(ctx context.Context, controlURL string) (*Client, error) {
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, controlURL, nil); err != nil {
		return nil, apperr.Wrap(apperr.KindProtocol, "connect", fmt.Errorf("%s: %w", controlURL, err))
	}

	browser := rod.New().Client(cdp.New().Start(ws))
	if err := browser.Connect(); err != nil {
		ws.Close()
		return nil, apperr.Wrap(apperr.KindProtocol, "connect", err)
	}

	L_debug("devtools: connected", "controlURL", controlURL)
	return &Client{controlURL: controlURL, ws: ws, browser: browser}, nil
}

// NewPage creates an isolated target (a fresh tab) on the browser.
func (c *Client) NewPage(ctx context.Context, opts PageOptions) (*Page, error) {
	// devices.Clear (the zero choice in config) disables emulation
	browser := c.browser.Context(ctx).DefaultDevice(opts.Device)

	var (
		page *rod.Page
		err  error
	)
	if opts.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProtocol, "create target", err)
	}

	navTimeout := opts.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 45 * time.Second
	}

	// Detach the page from ctx; each call scopes its own context
	page = page.Context(context.Background())
	L_debug("devtools: created target", "targetID", page.TargetID, "stealth", opts.Stealth)
	return &Page{page: page, navTimeout: navTimeout}, nil
}

// Detach drops the websocket without closing the browser, so another
// invocation can reconnect to the same process later.
func (c *Client) Detach() error {
	L_debug("devtools: detaching", "controlURL", c.controlURL)
	return c.ws.Close()
}

// Close asks the browser to exit and drops the connection.
func (c *Client) Close() error {
	L_debug("devtools: closing browser", "controlURL", c.controlURL)
	err := c.browser.Close()
	c.ws.Close()
	if err != nil {
		return apperr.Wrap(apperr.KindProtocol, "close browser", err)
	}
	return nil
}
