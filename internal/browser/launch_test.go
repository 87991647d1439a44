package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"
)

func TestParseFlag(t *testing.T) {
	name, values := parseFlag("--lang=de-DE")
	assert.Equal(t, flags.Flag("lang"), name)
	assert.Equal(t, []string{"de-DE"}, values)

	name, values = parseFlag("mute-audio")
	assert.Equal(t, flags.Flag("mute-audio"), name)
	assert.Nil(t, values)
}

func TestNewLauncherFlags(t *testing.T) {
	l := newLauncher(LaunchOptions{
		ProfileDir: t.TempDir(),
		Port:       9333,
		Headless:   true,
		NoSandbox:  true,
		Stealth:    true,
		ExtraFlags: []string{"--lang=de-DE", "mute-audio", "--"},
	})

	assert.Equal(t, "9333", l.Get(flags.RemoteDebuggingPort))
	assert.True(t, l.Has(flags.NoSandbox))
	assert.Equal(t, "AutomationControlled", l.Get("disable-blink-features"))
	assert.Equal(t, "de-DE", l.Get("lang"))
	assert.True(t, l.Has("mute-audio"))
	assert.False(t, l.Has("window-size"), "headless runs keep the default window")
}

func TestNewLauncherHeadedWindow(t *testing.T) {
	l := newLauncher(LaunchOptions{ProfileDir: t.TempDir(), Port: 9444})
	assert.Equal(t, "1920,1080", l.Get("window-size"))
	assert.False(t, l.Has(flags.NoSandbox))
}
