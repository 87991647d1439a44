package browser

import (
	"context"
	"sync"
	"time"

	"github.com/roelfdiedericks/chatpilot/internal/devtools"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/poll"
)

// exitWait bounds how long Close waits for a terminated browser to go away
const exitWait = 5 * time.Second

// Conn is a protocol connection to one browser
type Conn interface {
	OpenTarget(ctx context.Context, opts devtools.PageOptions) (TargetHandle, error)
	Detach() error
	Close() error
}

// TargetHandle is an isolated page that can be closed
type TargetHandle interface {
	devtools.Target
	TargetID() string
	Close() error
}

// ConnectFunc dials a control URL. Replaced in tests.
type ConnectFunc func(ctx context.Context, controlURL string) (Conn, error)

type clientConn struct {
	*devtools.Client
}

func (c clientConn) OpenTarget(ctx context.Context, opts devtools.PageOptions) (TargetHandle, error) {
	page, err := c.NewPage(ctx, opts)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func connectClient(ctx context.Context, controlURL string) (Conn, error) {
	c, err := devtools.Connect(ctx, controlURL)
	if err != nil {
		return nil, err
	}
	return clientConn{c}, nil
}

// Session is one browser connection plus its isolated target. The
// invocation that opened it owns it and must Close it exactly once.
type Session struct {
	ProfileDir string
	DebugPort  int
	PID        int // 0 when an already running browser was reused
	TargetID   string

	conn   Conn
	target TargetHandle
	store  *StateStore
	proc   *Process

	once     sync.Once
	closeErr error
}

// Target returns the session's page
func (s *Session) Target() devtools.Target {
	return s.target
}

// Launched reports whether this invocation started the browser
func (s *Session) Launched() bool {
	return s.proc != nil
}

// Close tears the session down. With keepAlive only the connection is
// dropped and the process and markers stay for the next invocation. A
// reused browser is never terminated here; a launched one is closed,
// killed if needed, and its state released once it has exited. Safe to
// call more than once.
func (s *Session) Close(ctx context.Context, keepAlive bool) error {
	s.once.Do(func() {
		s.closeErr = s.close(ctx, keepAlive)
	})
	return s.closeErr
}

func (s *Session) close(ctx context.Context, keepAlive bool) error {
	if keepAlive {
		L_info("browser: keeping browser alive", "profileDir", s.ProfileDir, "port", s.DebugPort)
		return s.conn.Detach()
	}

	if s.target != nil {
		if err := s.target.Close(); err != nil {
			L_debug("browser: close target failed", "error", err)
		}
	}

	if s.proc == nil {
		return s.conn.Detach()
	}

	err := s.conn.Close()
	if err != nil {
		L_debug("browser: graceful close failed, killing", "pid", s.PID, "error", err)
	}
	s.proc.Kill()

	if s.PID > 0 {
		_, waitErr := poll.Until(ctx, poll.Options{Timeout: exitWait, Interval: 100 * time.Millisecond, Label: "browser exit"},
			func(context.Context) (bool, any, error) {
				return !s.store.alive(s.PID), s.PID, nil
			})
		if waitErr != nil {
			L_warn("browser: process did not exit", "pid", s.PID, "error", waitErr)
		}
	}
	s.store.Release(LockIfOwnerDead)
	L_debug("browser: session closed", "profileDir", s.ProfileDir)
	return nil
}
