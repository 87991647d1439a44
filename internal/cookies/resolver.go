package cookies

import (
	"context"
	"strings"
	"time"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/devtools"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/poll"
)

const (
	DefaultSignInInterval = 2 * time.Second
	DefaultSignInTimeout  = 5 * time.Minute
)

// Store is a persistent cookie source such as a local Chrome profile.
type Store interface {
	Read(ctx context.Context, spec Spec) ([]Candidate, error)
}

// Opener opens a headed browser page for interactive sign-in. The
// returned func releases it.
type Opener func(ctx context.Context) (devtools.Target, func(), error)

// Options configures a Resolver.
type Options struct {
	Inline         Map
	InlineFile     string // JSON cookie export
	Manual         bool   // force interactive sign-in
	Store          Store
	Opener         Opener
	SignInInterval time.Duration
	SignInTimeout  time.Duration
	Log            LineFunc
}

// Resolver runs the cookie chain: inline, then interactive sign-in, then
// the native store.
type Resolver struct {
	opts Options
}

// NewResolver creates a resolver.
func NewResolver(opts Options) *Resolver {
	if opts.SignInInterval <= 0 {
		opts.SignInInterval = DefaultSignInInterval
	}
	if opts.SignInTimeout <= 0 {
		opts.SignInTimeout = DefaultSignInTimeout
	}
	return &Resolver{opts: opts}
}

// Resolve returns cookies that satisfy spec and where they came from.
// Inline cookies always win on name collisions.
func (r *Resolver) Resolve(ctx context.Context, spec Spec) (Map, Source, error) {
	inline, err := r.inline(spec)
	if err != nil {
		return nil, "", err
	}
	if spec.Satisfies(inline) {
		L_debug("cookies: inline cookies satisfy provider", "provider", spec.Provider)
		return inline, SourceInline, nil
	}

	if r.opts.Manual || (r.opts.Store == nil && r.opts.Opener != nil) {
		if r.opts.Opener == nil {
			return nil, "", apperr.New(apperr.KindInvalidConfig, "resolve cookies", "manual sign-in requested but no browser is available")
		}
		m, err := r.interactive(ctx, spec, inline)
		if err != nil {
			return nil, "", err
		}
		return m, SourceInteractive, nil
	}

	if r.opts.Store != nil {
		cands, err := r.opts.Store.Read(ctx, spec)
		if err != nil {
			L_warn("cookies: native store unreadable", "provider", spec.Provider, "error", err)
		}
		m := Pick(cands, spec.ApexDomain).Merge(inline)
		if spec.Satisfies(m) {
			r.opts.Log.Printf("Using %d cookies from local Chrome profile", len(m))
			return m, SourceNative, nil
		}
		return nil, "", missing(spec, m)
	}

	return nil, "", missing(spec, inline)
}

func (r *Resolver) inline(spec Spec) (Map, error) {
	m := Map{}
	if r.opts.InlineFile != "" {
		exported, err := LoadExport(r.opts.InlineFile, spec)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidConfig, "load cookie export", err)
		}
		m = exported
	}
	return m.Merge(r.opts.Inline), nil
}

func (r *Resolver) interactive(ctx context.Context, spec Spec, inline Map) (Map, error) {
	target, release, err := r.opts.Opener(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r.opts.Log.Printf("Sign in to %s in the browser window; waiting up to %s", spec.Provider, r.opts.SignInTimeout)
	if err := target.Navigate(ctx, spec.SignInURL); err != nil {
		return nil, err
	}

	state, err := poll.Until(ctx, poll.Options{
		Timeout:  r.opts.SignInTimeout,
		Interval: r.opts.SignInInterval,
		Label:    "sign-in cookies",
	}, func(ctx context.Context) (bool, any, error) {
		jar, err := target.Cookies(ctx, spec.Origins)
		if err != nil {
			// Page may be mid-navigation while the user signs in
			L_debug("cookies: jar read failed", "error", err)
			return false, nil, nil
		}
		var allowed []Candidate
		for _, c := range FromProtocol(jar) {
			if spec.Allowed(c.Name) {
				allowed = append(allowed, c)
			}
		}
		m := Pick(allowed, spec.ApexDomain).Merge(inline)
		return spec.Satisfies(m), m, nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindTimeout) {
			last, _ := state.(Map)
			return nil, apperr.New(apperr.KindSignInTimeout, "interactive sign-in",
				"no %s session after %s (missing %s)", spec.Provider, r.opts.SignInTimeout, strings.Join(spec.Missing(last), ", "))
		}
		return nil, err
	}

	m := state.(Map)
	r.opts.Log.Printf("Captured %d %s cookies", len(m), spec.Provider)
	return m, nil
}

func missing(spec Spec, m Map) error {
	return apperr.New(apperr.KindMissingAuthCookies, "resolve cookies",
		"%s needs cookies %s", spec.Provider, strings.Join(spec.Missing(m), ", ")).
		WithState(m.Names())
}
