package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/paths"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatpilot.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
provider = "gemini"
model = "gemini-2.5-pro"

[timeouts]
response = "3m"

[auth.cookies]
"__Secure-1PSID" = "abc"

[browser]
headless = true
autoDownload = false
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	assert.Equal(t, ModeAuto, cfg.ResolveMode())
	assert.Equal(t, 3*time.Minute, cfg.ResolveResponseTimeout())
	assert.Equal(t, 45*time.Second, cfg.ResolveUITimeout())
	assert.Equal(t, "abc", cfg.Auth.Cookies["__Secure-1PSID"])
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Browser.AutoDownload)
	assert.True(t, cfg.Browser.Stealth, "unset keys keep defaults")
	assert.Equal(t, "default", cfg.Browser.Profile)
}

func TestLoadFileIgnoresUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
model = "gpt-5"
colour = "blue"

[browser]
zoom = 2
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", cfg.Model)
	assert.Equal(t, Default().Browser.Profile, cfg.Browser.Profile)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(paths.HomeEnv, t.TempDir())
	t.Setenv(paths.ConfigEnv, "")
	t.Chdir(t.TempDir())

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"mode", `mode = "websocket"`},
		{"duration", "[timeouts]\nui = \"soon\""},
		{"strategy", "[attach]\nstrategies = [\"paste\"]"},
		{"syntax", `provider = `},
		{"cookie file", "[auth]\ncookieFile = \"/nonexistent/cookies.json\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidConfig, apperr.KindOf(err))
		})
	}
}

func TestMergeOverridesSetFields(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Merge(Config{Model: "gpt-5-thinking", Mode: "DOM"}))
	assert.Equal(t, "gpt-5-thinking", cfg.Model)
	assert.Equal(t, 45*time.Second, cfg.ResolveUITimeout())
	assert.Equal(t, ModeDOM, cfg.ResolveMode())

	assert.Error(t, cfg.Merge(Config{Mode: "bogus"}))
}

func TestResolveTimeout(t *testing.T) {
	assert.Equal(t, time.Second, ResolveTimeout("", time.Second))
	assert.Equal(t, time.Second, ResolveTimeout("nope", time.Second))
	assert.Equal(t, time.Second, ResolveTimeout("-5s", time.Second))
	assert.Equal(t, 90*time.Second, ResolveTimeout("1m30s", time.Second))
}

func TestSaveRotatesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatpilot.toml")

	cfg := Default()
	for _, model := range []string{"a", "b", "c"} {
		cfg.Model = model
		require.NoError(t, Save(path, cfg))
	}

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c", loaded.Model)

	prev, err := LoadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "b", prev.Model)

	older, err := LoadFile(path + ".bak.1")
	require.NoError(t, err)
	assert.Equal(t, "a", older.Model)
}

func TestInitWritesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv(paths.HomeEnv, home)

	path, err := Init("", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, paths.ConfigFile), path)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestInitKeepsExistingUnlessForced(t *testing.T) {
	path := writeConfig(t, `model = "gemini-2.5-pro"`)

	_, err := Init(path, false)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidConfig, apperr.KindOf(err))
	assert.NotEmpty(t, apperr.RemedyOf(err))

	kept, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", kept.Model)

	_, err = Init(path, true)
	require.NoError(t, err)
	fresh, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Model, fresh.Model)

	backup, err := LoadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", backup.Model)
}
