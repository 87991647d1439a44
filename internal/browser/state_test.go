package browser

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, alive ...int) *StateStore {
	t.Helper()
	live := map[int]bool{}
	for _, pid := range alive {
		live[pid] = true
	}
	return &StateStore{dir: t.TempDir(), hostname: "testhost", alive: func(pid int) bool { return live[pid] }}
}

func writeLock(t *testing.T, dir, host string, pid int) {
	t.Helper()
	require.NoError(t, os.Symlink(host+"-"+strconv.Itoa(pid), filepath.Join(dir, LockFile)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SingletonCookie"), []byte("x"), 0600))
}

func exists(dir, name string) bool {
	_, err := os.Lstat(filepath.Join(dir, name))
	return err == nil
}

func TestParseLock(t *testing.T) {
	assert.Equal(t, LockInfo{Host: "my-laptop", PID: 4711}, parseLock("my-laptop-4711"))
	assert.Equal(t, LockInfo{}, parseLock("garbage"))
	assert.Equal(t, LockInfo{}, parseLock("host-abc"))
}

func TestRecordAndRead(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, ProfileState{}, s.Read())

	require.NoError(t, s.Record(9333, 1234))
	st := s.Read()
	assert.Equal(t, 9333, st.ActivePort)
	assert.Equal(t, 1234, st.PID)
	assert.Nil(t, st.Lock)

	writeLock(t, s.dir, "testhost", 1234)
	st = s.Read()
	require.NotNil(t, st.Lock)
	assert.Equal(t, 1234, st.Lock.PID)
}

func TestReadMalformedMarkers(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, PortFile), []byte("not-a-port"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, PIDFile), []byte("-5"), 0600))
	assert.Equal(t, ProfileState{}, s.Read())
}

func TestReleaseLockPolicy(t *testing.T) {
	t.Run("owner alive", func(t *testing.T) {
		s := newTestStore(t, 50)
		writeLock(t, s.dir, "testhost", 50)
		assert.False(t, s.ReleaseLock(LockIfOwnerDead))
		assert.True(t, exists(s.dir, LockFile))
	})
	t.Run("owner dead", func(t *testing.T) {
		s := newTestStore(t)
		writeLock(t, s.dir, "testhost", 50)
		assert.True(t, s.ReleaseLock(LockIfOwnerDead))
		assert.False(t, exists(s.dir, LockFile))
		assert.False(t, exists(s.dir, "SingletonCookie"))
	})
	t.Run("other host", func(t *testing.T) {
		s := newTestStore(t)
		writeLock(t, s.dir, "elsewhere", 50)
		assert.False(t, s.ReleaseLock(LockIfOwnerDead))
		assert.True(t, exists(s.dir, LockFile))
	})
	t.Run("never", func(t *testing.T) {
		s := newTestStore(t)
		writeLock(t, s.dir, "testhost", 50)
		assert.False(t, s.ReleaseLock(LockNever))
		assert.True(t, exists(s.dir, LockFile))
	})
	t.Run("no lock", func(t *testing.T) {
		s := newTestStore(t)
		assert.True(t, s.ReleaseLock(LockIfOwnerDead))
	})
}

func TestReleaseKeepsStateOfLiveOwner(t *testing.T) {
	s := newTestStore(t, 77)
	require.NoError(t, s.Record(9444, 77))
	writeLock(t, s.dir, "testhost", 77)

	s.Release(LockIfOwnerDead)

	assert.True(t, exists(s.dir, PortFile))
	assert.True(t, exists(s.dir, PIDFile))
	assert.True(t, exists(s.dir, LockFile))
}

func TestReleaseClearsStateOfDeadOwner(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Record(9444, 77))
	writeLock(t, s.dir, "testhost", 77)

	s.Release(LockIfOwnerDead)

	assert.False(t, exists(s.dir, PortFile))
	assert.False(t, exists(s.dir, PIDFile))
	assert.False(t, exists(s.dir, LockFile))
}
