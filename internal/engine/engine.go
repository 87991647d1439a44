// Package engine runs one prompt against a chat provider: it picks the
// execution mode, opens a browser session, resolves auth cookies, drives the
// provider's page and converts the answer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/attach"
	"github.com/roelfdiedericks/chatpilot/internal/browser"
	"github.com/roelfdiedericks/chatpilot/internal/config"
	"github.com/roelfdiedericks/chatpilot/internal/cookies"
	"github.com/roelfdiedericks/chatpilot/internal/devtools"
	"github.com/roelfdiedericks/chatpilot/internal/flow"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/metrics"
	"github.com/roelfdiedericks/chatpilot/internal/mode"
	"github.com/roelfdiedericks/chatpilot/internal/providers"
	"github.com/roelfdiedericks/chatpilot/internal/tokens"
)

// Session is an open browser page owned by one Run.
type Session interface {
	Target() devtools.Target
	Close(ctx context.Context, keepAlive bool) error
}

// Browser opens sessions on the configured profile.
type Browser interface {
	OpenSession(ctx context.Context, purpose browser.Purpose) (Session, error)
}

// HTTPRunner serves requests the mode selector routes away from the DOM.
type HTTPRunner interface {
	Run(ctx context.Context, req Request, d mode.Decision) (*Result, error)
}

// Request is one prompt.
type Request struct {
	Prompt      string
	Attachments []attach.Attachment
	ImageOps    int
	Model       string // overrides the configured model
	Log         LineFunc
}

// Result is the extracted answer.
type Result struct {
	RequestID      string
	Provider       string
	Model          string
	Mode           mode.Decision
	AnswerText     string
	AnswerMarkdown string
	SideChannel    string
	AnswerTokens   int
	AnswerChars    int
	TookMs         int64
	CookieSource   cookies.Source
	Stages         []flow.Stage
	Durations      map[flow.Stage]time.Duration
}

// Engine is safe for sequential use; one browser profile serves one request
// at a time.
type Engine struct {
	cfg      *config.Config
	registry *providers.Registry
	browser  Browser
	http     HTTPRunner
	store    cookies.Store
	tokens   *tokens.Estimator
	metrics  *metrics.Manager
}

// Option customizes an Engine.
type Option func(*Engine)

// WithBrowser replaces the browser manager.
func WithBrowser(b Browser) Option {
	return func(e *Engine) { e.browser = b }
}

// WithHTTPRunner serves requests routed to HTTP mode.
func WithHTTPRunner(r HTTPRunner) Option {
	return func(e *Engine) { e.http = r }
}

// WithRegistry replaces the provider tables.
func WithRegistry(r *providers.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithCookieStore replaces the native cookie store.
func WithCookieStore(s cookies.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithEstimator replaces the token estimator.
func WithEstimator(t *tokens.Estimator) Option {
	return func(e *Engine) { e.tokens = t }
}

// WithMetrics records run timings and outcomes.
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) { e.metrics = m }
}

// managed adapts browser.Manager to Browser.
type managed struct {
	m *browser.Manager
}

func (b managed) OpenSession(ctx context.Context, purpose browser.Purpose) (Session, error) {
	s, err := b.m.OpenSession(ctx, purpose)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// New builds an engine from cfg.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = providers.NewRegistry()
		if cfg.ProvidersFile != "" {
			if err := e.registry.LoadOverrides(cfg.ProvidersFile); err != nil {
				return nil, err
			}
		}
	}
	if e.browser == nil {
		m, err := browser.NewManager(cfg.Browser)
		if err != nil {
			return nil, err
		}
		e.browser = managed{m}
	}
	if e.store == nil && cfg.Auth.ChromeCookies {
		e.store = cookies.NewChromeStore(cfg.Auth.ChromeProfile, cfg.Auth.SafeStoragePassword)
	}
	if e.tokens == nil {
		e.tokens = tokens.Get()
	}
	return e, nil
}

// Decide resolves the model and provider and picks the execution mode
// without touching the browser.
func (e *Engine) Decide(req Request) (mode.Model, providers.Table, mode.Decision, error) {
	name := req.Model
	if name == "" {
		name = e.cfg.Model
	}
	model, ok := mode.Lookup(name)
	if !ok {
		var known []string
		for _, m := range mode.Models() {
			known = append(known, m.Name)
		}
		return mode.Model{}, providers.Table{}, mode.Decision{},
			apperr.New(apperr.KindInvalidConfig, "model", "unknown model %q (known: %s)", name, strings.Join(known, ", "))
	}

	provider := model.Provider
	if e.cfg.Provider != "" && !strings.EqualFold(e.cfg.Provider, provider) {
		return mode.Model{}, providers.Table{}, mode.Decision{},
			apperr.New(apperr.KindInvalidConfig, "model", "model %q belongs to %s, not %s", model.Name, provider, e.cfg.Provider)
	}
	table, err := e.registry.Get(provider)
	if err != nil {
		return mode.Model{}, providers.Table{}, mode.Decision{}, err
	}

	var d mode.Decision
	switch e.cfg.ResolveMode() {
	case config.ModeDOM:
		d = mode.Decision{Mode: mode.DOM, Reasons: []string{}}
	case config.ModeHTTP:
		d = mode.Decision{Mode: mode.HTTP, Reasons: []string{"config"}}
	default:
		d = mode.Select(model, mode.Request{Attachments: len(req.Attachments), ImageOperations: req.ImageOps})
	}
	return model, table, d, nil
}

// Run answers req. The browser session opened for it is closed on every
// path, including cancellation, unless keepBrowser is configured.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := e.run(ctx, req, start)
	e.record(req, res, err, time.Since(start))
	return res, err
}

// record files the run under its provider: total time, per-stage time and
// the outcome ("ok" or the failure kind).
func (e *Engine) record(req Request, res *Result, err error, took time.Duration) {
	if e.metrics == nil {
		return
	}
	if err == nil {
		e.metrics.RecordDuration(res.Provider, "run", took)
		e.metrics.RecordOutcome(res.Provider, "run", "ok")
		for stage, d := range res.Durations {
			e.metrics.RecordDuration(res.Provider, string(stage), d)
		}
		return
	}

	provider := "unknown"
	var se *flow.StageError
	if errors.As(err, &se) {
		provider = se.Provider
	} else if _, table, _, derr := e.Decide(req); derr == nil {
		provider = table.Name
	}
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "error"
	}
	e.metrics.RecordOutcome(provider, "run", kind)
	if se != nil {
		e.metrics.RecordOutcome(provider, string(se.Stage), kind)
	}
}

func (e *Engine) run(ctx context.Context, req Request, start time.Time) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperr.New(apperr.KindInvalidConfig, "run", "empty prompt")
	}
	for _, a := range req.Attachments {
		if _, err := os.Stat(a.SourcePath); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidConfig, "attachment", err)
		}
	}

	model, table, decision, err := e.Decide(req)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()[:8]
	L_info("engine: request", "id", id, "provider", table.Name, "model", model.Name, "mode", decision.String())

	if decision.Mode == mode.HTTP {
		if e.http == nil {
			return nil, apperr.New(apperr.KindModeUnavailable, "run", "%s needs HTTP mode (%s)",
				model.Name, strings.Join(decision.Reasons, ", "))
		}
		res, err := e.http.Run(ctx, req, decision)
		if res != nil && res.Provider == "" {
			res.Provider, res.Model, res.Mode = table.Name, model.Name, decision
		}
		return res, err
	}

	for _, u := range []string{table.BaseURL, table.SignInURL} {
		if u == "" {
			continue
		}
		if err := browser.ValidateProviderURL(u, e.cfg.AllowPrivate); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidConfig, "provider url", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ResolveRequestTimeout())
	defer cancel()

	log := req.Log
	sess, err := e.browser.OpenSession(ctx, browser.PurposeRequest)
	if err != nil {
		return nil, err
	}
	defer func() {
		// teardown must survive the request context being cancelled
		if cerr := sess.Close(context.WithoutCancel(ctx), e.cfg.Browser.KeepBrowser); cerr != nil {
			L_warn("engine: session close failed", "id", id, "error", cerr)
		}
	}()
	target := sess.Target()

	source, err := e.installCookies(ctx, target, table, log, e.cfg.Auth.Manual)
	if err != nil {
		return nil, err
	}

	log.Printf("Opening %s", table.BaseURL)
	if err := target.Navigate(ctx, table.BaseURL); err != nil {
		return nil, err
	}

	out, err := flow.Run(ctx, e.adapter(model, table), &flow.Context{
		Prompt:      req.Prompt,
		Target:      target,
		Log:         log,
		Attachments: req.Attachments,
		Uploader:    e.uploader(table, log),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !apperr.Is(err, apperr.KindTimeout) {
			err = apperr.Wrap(apperr.KindTimeout, "request", err)
		}
		return nil, err
	}

	res := &Result{
		RequestID:    id,
		Provider:     table.Name,
		Model:        model.Name,
		Mode:         decision,
		AnswerText:   strings.TrimSpace(out.Text),
		SideChannel:  out.SideChannel,
		CookieSource: source,
		Stages:       out.Stages,
		Durations:    out.Durations,
	}
	res.AnswerMarkdown = sideChannelBlock(out.SideChannel) + renderMarkdown(out.HTML, out.Text, table.BaseURL)
	size := e.tokens.Measure(res.AnswerText)
	res.AnswerTokens, res.AnswerChars = size.Tokens, size.Chars
	res.TookMs = time.Since(start).Milliseconds()

	L_elapsed(start, "engine: answered", "id", id, "chars", res.AnswerChars, "tokens", res.AnswerTokens)
	return res, nil
}

// installCookies resolves the provider's auth cookies and sets them on the
// page. The session's own page doubles as the sign-in window.
func (e *Engine) installCookies(ctx context.Context, target devtools.Target, table providers.Table, log LineFunc, manual bool) (cookies.Source, error) {
	signIn := e.cfg.ResolveSignInTimeout()
	if e.cfg.Browser.Headless && !manual {
		// nobody can sign in to a headless page; only wait for a profile
		// that is already signed in
		signIn = e.cfg.ResolveUITimeout()
	}
	r := cookies.NewResolver(cookies.Options{
		Inline:        e.cfg.Auth.Cookies,
		InlineFile:    e.cfg.Auth.CookieFile,
		Manual:        manual,
		Store:         e.store,
		SignInTimeout: signIn,
		Log:           log,
		Opener: func(ctx context.Context) (devtools.Target, func(), error) {
			return target, func() {}, nil
		},
	})

	spec := table.CookieSpec()
	jar, source, err := r.Resolve(ctx, spec)
	if err != nil {
		return "", err
	}
	if err := target.SetCookies(ctx, cookies.Params(spec, jar)); err != nil {
		return "", err
	}
	L_debug("engine: cookies installed", "provider", table.Name, "source", source, "names", jar.Names())
	return source, nil
}

func (e *Engine) adapter(model mode.Model, table providers.Table) flow.Adapter {
	phrase := model.ModePhrase
	if e.cfg.ModePhrase != "" {
		phrase = e.cfg.ModePhrase
	}
	side := model.SideChannel
	if e.cfg.SideChannel != nil {
		side = *e.cfg.SideChannel
	}
	return providers.New(table, providers.Options{
		UITimeout:       e.cfg.ResolveUITimeout(),
		ResponseTimeout: e.cfg.ResolveResponseTimeout(),
		ModePhrase:      phrase,
		SideChannel:     side,
	})
}

func (e *Engine) uploader(table providers.Table, log LineFunc) *attach.Uploader {
	var strategies []attach.Strategy
	for _, s := range e.cfg.Attach.Strategies {
		strategies = append(strategies, attach.Strategy(s))
	}
	return attach.New(attach.Options{
		Selectors:     table.AttachSelectors(),
		Strategies:    strategies,
		VerifyTimeout: e.cfg.ResolveVerifyTimeout(),
		SentTimeout:   e.cfg.ResolveSentTimeout(),
		Log:           log,
	})
}

// LoginResult reports an interactive sign-in.
type LoginResult struct {
	Provider string
	Cookies  []string // captured cookie names
	Source   cookies.Source
}

// Login opens a headed browser on the provider's sign-in page and waits
// until the required cookies appear. The cookies stay in the browser
// profile for later runs.
func (e *Engine) Login(ctx context.Context, provider string, log LineFunc) (*LoginResult, error) {
	if provider == "" {
		provider = e.cfg.Provider
	}
	if provider == "" {
		if m, ok := mode.Lookup(e.cfg.Model); ok {
			provider = m.Provider
		}
	}
	table, err := e.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	if err := browser.ValidateProviderURL(table.SignInURL, e.cfg.AllowPrivate); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidConfig, "provider url", err)
	}

	sess, err := e.browser.OpenSession(ctx, browser.PurposeLogin)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(context.WithoutCancel(ctx), false); cerr != nil {
			L_warn("engine: login session close failed", "error", cerr)
		}
	}()

	log.Printf("Sign in to %s in the browser window", table.Name)
	r := cookies.NewResolver(cookies.Options{
		Manual:        true,
		SignInTimeout: e.cfg.ResolveSignInTimeout(),
		Log:           log,
		Opener: func(ctx context.Context) (devtools.Target, func(), error) {
			return sess.Target(), func() {}, nil
		},
	})
	jar, source, err := r.Resolve(ctx, table.CookieSpec())
	if err != nil {
		return nil, err
	}
	return &LoginResult{Provider: table.Name, Cookies: jar.Names(), Source: source}, nil
}

func (r *Result) String() string {
	return fmt.Sprintf("%s/%s %s: %d chars, %d tokens in %dms", r.Provider, r.Model, r.Mode, r.AnswerChars, r.AnswerTokens, r.TookMs)
}
