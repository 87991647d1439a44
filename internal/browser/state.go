package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	. "github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/paths"
)

// Marker files kept in the profile directory. SingletonLock belongs to
// Chrome; it is a symlink whose target reads "<host>-<pid>".
const (
	PortFile = ".chatpilot-port"
	PIDFile  = ".chatpilot-pid"
	LockFile = "SingletonLock"
)

// chromeSingletons are removed together with the lock
var chromeSingletons = []string{"SingletonLock", "SingletonCookie", "SingletonSocket"}

// LockPolicy decides when lock and marker files may be removed
type LockPolicy int

const (
	// LockNever leaves the lock in place
	LockNever LockPolicy = iota
	// LockIfOwnerDead removes the lock only when its owning process is gone
	LockIfOwnerDead
)

func (p LockPolicy) String() string {
	switch p {
	case LockNever:
		return "never"
	case LockIfOwnerDead:
		return "if-owner-process-dead"
	}
	return "unknown"
}

// LockInfo is the owner recorded in Chrome's SingletonLock
type LockInfo struct {
	Host string
	PID  int
}

// ProfileState is what the marker files currently say
type ProfileState struct {
	ActivePort int
	PID        int
	Lock       *LockInfo
}

// Prober checks whether a debugging endpoint answers on a port and
// returns its websocket control URL.
type Prober interface {
	Probe(ctx context.Context, port int) (string, error)
}

// StateStore owns the marker files of one profile directory. Every
// read, write and removal of profile state goes through it.
type StateStore struct {
	dir      string
	hostname string
	alive    func(pid int) bool
}

// NewStateStore creates a store for dir using the real process table
func NewStateStore(dir string) *StateStore {
	host, _ := os.Hostname()
	return &StateStore{dir: dir, hostname: host, alive: processAlive}
}

// Dir returns the profile directory
func (s *StateStore) Dir() string {
	return s.dir
}

// Read returns the current state. Missing or malformed markers read as zero.
func (s *StateStore) Read() ProfileState {
	st := ProfileState{
		ActivePort: s.readInt(PortFile),
		PID:        s.readInt(PIDFile),
	}
	if lock, ok := s.readLock(); ok {
		st.Lock = &lock
	}
	return st
}

// Record writes the port and pid markers. Each write is atomic so a
// concurrent reader sees either the old or the new value.
func (s *StateStore) Record(port, pid int) error {
	if err := paths.AtomicWrite(filepath.Join(s.dir, PortFile), []byte(strconv.Itoa(port)), 0600); err != nil {
		return fmt.Errorf("record port: %w", err)
	}
	if err := paths.AtomicWrite(filepath.Join(s.dir, PIDFile), []byte(strconv.Itoa(pid)), 0600); err != nil {
		return fmt.Errorf("record pid: %w", err)
	}
	L_debug("browser: recorded profile state", "dir", s.dir, "port", port, "pid", pid)
	return nil
}

// Validate probes the recorded port. It returns the control URL when the
// endpoint answers, or "" when there is nothing to reuse.
func (s *StateStore) Validate(ctx context.Context, prober Prober) (ProfileState, string) {
	st := s.Read()
	if st.ActivePort == 0 {
		return st, ""
	}
	controlURL, err := prober.Probe(ctx, st.ActivePort)
	if err != nil {
		L_info("browser: recorded port is stale", "dir", s.dir, "port", st.ActivePort, "error", err)
		return st, ""
	}
	return st, controlURL
}

// ClearMarkers removes the port and pid markers unconditionally. Used when
// the recorded endpoint no longer answers.
func (s *StateStore) ClearMarkers() {
	for _, name := range []string{PortFile, PIDFile} {
		s.remove(name)
	}
}

// ReleaseLock removes Chrome's singleton files if policy allows. A lock
// written by another host is always treated as alive. Reports whether the
// lock is gone afterwards.
func (s *StateStore) ReleaseLock(policy LockPolicy) bool {
	lock, ok := s.readLock()
	if !ok {
		// Stray SingletonCookie/SingletonSocket without a lock
		if policy == LockIfOwnerDead {
			for _, name := range chromeSingletons[1:] {
				s.remove(name)
			}
		}
		return true
	}
	if policy == LockNever {
		return false
	}
	if s.ownerAlive(lock) {
		L_debug("browser: lock owner still alive", "dir", s.dir, "host", lock.Host, "pid", lock.PID)
		return false
	}
	for _, name := range chromeSingletons {
		s.remove(name)
	}
	L_info("browser: removed stale profile lock", "dir", s.dir, "pid", lock.PID)
	return true
}

// Release clears markers and lock after a session ends. The markers go
// only when the recorded process is dead, so state written by a newer
// invocation survives.
func (s *StateStore) Release(policy LockPolicy) {
	st := s.Read()
	if policy == LockIfOwnerDead && st.PID != 0 && s.alive(st.PID) {
		L_debug("browser: recorded process still alive, keeping state", "dir", s.dir, "pid", st.PID)
		return
	}
	if policy != LockNever {
		s.ClearMarkers()
	}
	s.ReleaseLock(policy)
}

func (s *StateStore) ownerAlive(lock LockInfo) bool {
	if lock.Host != "" && s.hostname != "" && lock.Host != s.hostname {
		return true
	}
	return s.alive(lock.PID)
}

func (s *StateStore) readInt(name string) int {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func (s *StateStore) readLock() (LockInfo, bool) {
	path := filepath.Join(s.dir, LockFile)
	target, err := os.Readlink(path)
	if err != nil {
		if _, statErr := os.Lstat(path); statErr != nil {
			return LockInfo{}, false
		}
		// Present but not a symlink; owner unknown
		return LockInfo{}, true
	}
	return parseLock(target), true
}

// parseLock splits "<host>-<pid>". Hostnames may contain dashes.
func parseLock(target string) LockInfo {
	i := strings.LastIndex(target, "-")
	if i < 0 {
		return LockInfo{}
	}
	pid, err := strconv.Atoi(target[i+1:])
	if err != nil {
		return LockInfo{}
	}
	return LockInfo{Host: target[:i], PID: pid}
}

func (s *StateStore) remove(name string) {
	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		L_warn("browser: failed to remove profile marker", "file", path, "error", err)
	}
}
