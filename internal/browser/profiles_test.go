package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProfiles(t *testing.T, alive ...int) *Profiles {
	t.Helper()
	live := map[int]bool{}
	for _, pid := range alive {
		live[pid] = true
	}
	return &Profiles{root: t.TempDir(), alive: func(pid int) bool { return live[pid] }}
}

func TestValidProfileName(t *testing.T) {
	for _, ok := range []string{"", "default", "work-2", "gemini.personal"} {
		assert.NoError(t, ValidProfileName(ok), ok)
	}
	for _, bad := range []string{".", "..", "a/b", `a\b`, "../escape"} {
		assert.Error(t, ValidProfileName(bad), bad)
	}
}

func TestProfilesEnsureAndList(t *testing.T) {
	p := newTestProfiles(t)

	dir, err := p.Ensure("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.root, DefaultProfile), dir)

	_, err = p.Ensure("work")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(p.root, "work", "Cookies"), make([]byte, 2048), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(p.root, "stray.txt"), []byte("x"), 0600))

	list, err := p.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "default", list[0].Name)
	assert.Equal(t, "work", list[1].Name)
	assert.Equal(t, int64(2048), list[1].Size)
	assert.False(t, list[1].Running)

	_, err = p.Ensure("../x")
	assert.Error(t, err)
}

func TestProfilesListMissingRoot(t *testing.T) {
	p := &Profiles{root: filepath.Join(t.TempDir(), "none"), alive: processAlive}
	list, err := p.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProfilesClear(t *testing.T) {
	p := newTestProfiles(t)
	dir, err := p.Ensure("work")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Default"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Default", "Cookies"), []byte("c"), 0600))

	require.NoError(t, p.Clear("work"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Error(t, p.Clear("missing"))
}

func TestProfilesClearRefusesRunning(t *testing.T) {
	p := newTestProfiles(t, 4242)
	dir, err := p.Ensure("busy")
	require.NoError(t, err)
	require.NoError(t, NewStateStore(dir).Record(9333, 4242))

	info, err := p.Info("busy")
	require.NoError(t, err)
	assert.True(t, info.Running)
	assert.Equal(t, 9333, info.Port)

	err = p.Clear("busy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pid 4242")
	assert.FileExists(t, filepath.Join(dir, PortFile))
}
