package browser

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// LaunchOptions describes one browser process bound to a profile
type LaunchOptions struct {
	Bin        string
	ProfileDir string
	Port       int
	Headless   bool
	NoSandbox  bool
	Stealth    bool
	ExtraFlags []string
}

// Process is a browser started by this invocation
type Process struct {
	ControlURL string
	Port       int
	PID        int
	kill       func()
}

// Kill terminates the process and its children
func (p *Process) Kill() {
	if p == nil {
		return
	}
	if p.kill != nil {
		p.kill()
		return
	}
	terminateProcess(p.PID)
}

// LaunchFunc starts a browser. Replaced in tests.
type LaunchFunc func(ctx context.Context, opts LaunchOptions) (*Process, error)

// newLauncher builds the rod launcher for opts without starting anything.
// Leakless is off so a kept browser outlives this process.
func newLauncher(opts LaunchOptions) *launcher.Launcher {
	l := launcher.New().
		Bin(opts.Bin).
		UserDataDir(opts.ProfileDir).
		Headless(opts.Headless).
		Leakless(false).
		RemoteDebuggingPort(opts.Port).
		Set("disable-dev-shm-usage") // For Docker/limited memory

	// Use 1920x1080 so sites show the full desktop layout
	if !opts.Headless {
		l = l.Set("window-size", "1920,1080").
			Set("start-maximized")
	}
	if opts.Stealth {
		l = l.Set("disable-blink-features", "AutomationControlled")
	}
	if opts.NoSandbox {
		l = l.Set("no-sandbox")
	}
	for _, f := range opts.ExtraFlags {
		name, values := parseFlag(f)
		if name == "" {
			continue
		}
		l = l.Set(name, values...)
	}
	return l
}

// parseFlag splits "--name=value" (dashes optional) into a launcher flag.
func parseFlag(f string) (flags.Flag, []string) {
	name, value, hasValue := strings.Cut(strings.TrimLeft(strings.TrimSpace(f), "-"), "=")
	if !hasValue {
		return flags.Flag(name), nil
	}
	return flags.Flag(name), []string{value}
}

// launchChrome starts Chrome through the rod launcher.
func launchChrome(ctx context.Context, opts LaunchOptions) (*Process, error) {
	l := newLauncher(opts)

	L_debug("browser: launching", "profileDir", opts.ProfileDir, "port", opts.Port, "headless", opts.Headless)

	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := l.Launch()
		done <- result{u, err}
	}()

	select {
	case <-ctx.Done():
		l.Kill()
		return nil, apperr.Wrap(apperr.KindTimeout, "launch browser", ctx.Err())
	case r := <-done:
		if r.err != nil {
			l.Kill()
			return nil, apperr.Wrap(apperr.KindProtocol, "launch browser", r.err)
		}
		return &Process{ControlURL: r.url, Port: opts.Port, PID: l.PID(), kill: l.Kill}, nil
	}
}

// freePort asks the kernel for an unused loopback port
func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// DevToolsProber queries /json/version on the loopback port
type DevToolsProber struct {
	Timeout time.Duration
}

// Probe returns the websocket debugger URL if the endpoint answers
func (p DevToolsProber) Probe(ctx context.Context, port int) (string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := launcher.ResolveURL(fmt.Sprintf("127.0.0.1:%d", port))
		done <- result{u, err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("probe port %d: %w", port, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("probe port %d: %w", port, r.err)
		}
		return r.url, nil
	}
}
