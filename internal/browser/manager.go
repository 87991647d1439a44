package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/devtools"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/paths"
	"github.com/roelfdiedericks/chatpilot/internal/poll"
)

// Purpose says why a session is opened
type Purpose int

const (
	// PurposeRequest drives a provider page for one prompt
	PurposeRequest Purpose = iota
	// PurposeLogin lets the user sign in; always headed
	PurposeLogin
)

func (p Purpose) String() string {
	if p == PurposeLogin {
		return "login"
	}
	return "request"
}

// Manager opens browser sessions bound to one profile directory,
// reusing a kept browser when its recorded port still answers.
type Manager struct {
	config     BrowserConfig
	downloader *Downloader
	profiles   *Profiles

	prober  Prober
	launch  LaunchFunc
	connect ConnectFunc
	alive   func(pid int) bool
}

// Option customises a Manager
type Option func(*Manager)

// WithProber replaces the liveness prober
func WithProber(p Prober) Option {
	return func(m *Manager) { m.prober = p }
}

// WithLauncher replaces how browser processes are started
func WithLauncher(fn LaunchFunc) Option {
	return func(m *Manager) { m.launch = fn }
}

// WithConnector replaces how control URLs are dialed
func WithConnector(fn ConnectFunc) Option {
	return func(m *Manager) { m.connect = fn }
}

// WithProcessTable replaces the pid liveness check
func WithProcessTable(alive func(pid int) bool) Option {
	return func(m *Manager) { m.alive = alive }
}

// NewManager creates a manager for cfg
func NewManager(cfg BrowserConfig, opts ...Option) (*Manager, error) {
	base, err := paths.BaseDir()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		config:     cfg,
		downloader: NewDownloader(cfg.ResolveBinDir(base), cfg.BrowserPath, cfg.AutoDownload),
		profiles:   NewProfiles(cfg.ResolveProfilesDir(base)),
		prober:     DevToolsProber{},
		launch:     launchChrome,
		connect:    connectClient,
		alive:      processAlive,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.profiles.alive = m.alive
	return m, nil
}

// Config returns the browser configuration
func (m *Manager) Config() BrowserConfig {
	return m.config
}

// Profiles returns the profile directories under the configured root.
func (m *Manager) Profiles() *Profiles {
	return m.profiles
}

// ProfileDir returns the configured profile directory, creating it
func (m *Manager) ProfileDir() (string, error) {
	if m.config.ProfileDir != "" {
		if err := os.MkdirAll(m.config.ProfileDir, 0750); err != nil {
			return "", fmt.Errorf("failed to create profile directory: %w", err)
		}
		return m.config.ProfileDir, nil
	}
	return m.profiles.Ensure(m.config.Profile)
}

func (m *Manager) store(dir string) *StateStore {
	s := NewStateStore(dir)
	s.alive = m.alive
	return s
}

// OpenSession returns a session on a fresh isolated target. A recorded
// port that still answers is reused; a stale one is cleaned up and a new
// browser launched. Stale state is logged, never returned as an error.
func (m *Manager) OpenSession(ctx context.Context, purpose Purpose) (*Session, error) {
	dir, err := m.ProfileDir()
	if err != nil {
		return nil, err
	}
	store := m.store(dir)

	st, controlURL := store.Validate(ctx, m.prober)
	if controlURL != "" {
		L_info("browser: reusing running browser", "profileDir", dir, "port", st.ActivePort, "purpose", purpose)
		return m.attach(ctx, store, st.ActivePort, controlURL, nil)
	}

	if st.ActivePort != 0 {
		store.ClearMarkers()
	}
	if !store.ReleaseLock(LockIfOwnerDead) {
		owner := 0
		if st.Lock != nil {
			owner = st.Lock.PID
		}
		return nil, apperr.New(apperr.KindProtocol, "open session",
			"profile %s is locked by a running browser (pid %d) that does not answer on a debugging port", dir, owner).
			WithRemedy("Close the browser using this profile (or run `chatpilot profiles stop`) and retry.")
	}

	proc, err := m.start(ctx, dir, purpose)
	if err != nil {
		return nil, err
	}
	if err := store.Record(proc.Port, proc.PID); err != nil {
		proc.Kill()
		return nil, err
	}
	return m.attach(ctx, store, proc.Port, proc.ControlURL, proc)
}

func (m *Manager) start(ctx context.Context, dir string, purpose Purpose) (*Process, error) {
	bin, err := m.downloader.EnsureBrowser()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidConfig, "resolve browser", err)
	}

	port := m.config.DebugPort
	if port == 0 {
		if port, err = freePort(); err != nil {
			return nil, err
		}
	}

	launchCtx, cancel := context.WithTimeout(ctx, m.config.ResolveLaunchTimeout())
	defer cancel()

	start := time.Now()
	proc, err := m.launch(launchCtx, LaunchOptions{
		Bin:        bin,
		ProfileDir: dir,
		Port:       port,
		Headless:   m.config.Headless && purpose != PurposeLogin,
		NoSandbox:  m.config.NoSandbox,
		Stealth:    m.config.Stealth,
		ExtraFlags: m.config.ExtraFlags,
	})
	if err != nil {
		return nil, err
	}
	if proc.Port == 0 {
		proc.Port = port
	}
	L_elapsed(start, "browser: launched", "profileDir", dir, "port", proc.Port, "pid", proc.PID)
	return proc, nil
}

// attach connects and opens the target. On failure anything this call
// created is torn down before returning.
func (m *Manager) attach(ctx context.Context, store *StateStore, port int, controlURL string, proc *Process) (*Session, error) {
	s := &Session{ProfileDir: store.Dir(), DebugPort: port, store: store, proc: proc}
	if proc != nil {
		s.PID = proc.PID
	}

	conn, err := m.connect(ctx, controlURL)
	if err != nil {
		if proc != nil {
			proc.Kill()
			store.Release(LockIfOwnerDead)
		}
		return nil, err
	}
	s.conn = conn

	target, err := conn.OpenTarget(ctx, devtools.PageOptions{
		Stealth:           m.config.Stealth,
		Device:            m.config.ResolveDevice(),
		NavigationTimeout: m.config.ResolveNavigationTimeout(),
	})
	if err != nil {
		s.Close(context.WithoutCancel(ctx), false)
		return nil, err
	}
	s.target = target
	s.TargetID = target.TargetID()
	L_debug("browser: session open", "profileDir", s.ProfileDir, "port", port, "targetID", s.TargetID, "launched", s.Launched())
	return s, nil
}

// StopProfile terminates a kept browser for the named profile ("" = the
// configured one). Reports whether a browser was running.
func (m *Manager) StopProfile(ctx context.Context, name string) (bool, error) {
	dir := m.config.ProfileDir
	if name == "" {
		name = m.config.Profile
	}
	if err := ValidProfileName(name); err != nil {
		return false, err
	}
	if dir == "" || name != m.config.Profile {
		dir = m.profiles.Dir(name)
	}
	store := m.store(dir)
	st, controlURL := store.Validate(ctx, m.prober)

	stopped := false
	if controlURL != "" {
		if conn, err := m.connect(ctx, controlURL); err == nil {
			if err := conn.Close(); err != nil {
				L_debug("browser: graceful stop failed", "error", err)
			}
			stopped = true
		}
	}
	if st.PID != 0 && m.alive(st.PID) {
		if err := terminateProcess(st.PID); err != nil {
			return stopped, fmt.Errorf("terminate pid %d: %w", st.PID, err)
		}
		stopped = true
		_, _ = poll.Until(ctx, poll.Options{Timeout: exitWait, Label: "browser exit"}, func(context.Context) (bool, any, error) {
			return !m.alive(st.PID), st.PID, nil
		})
	}

	store.Release(LockIfOwnerDead)
	if stopped {
		L_info("browser: stopped", "profileDir", dir, "pid", st.PID)
	}
	return stopped, nil
}
