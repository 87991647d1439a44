package main

import (
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/config"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("chatpilot"))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return kctx.Run(&cli.Globals)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(apperr.New(apperr.KindInvalidConfig, "x", "bad")))
	assert.Equal(t, 3, exitCode(apperr.New(apperr.KindRequiresSignIn, "x", "")))
	assert.Equal(t, 5, exitCode(apperr.New(apperr.KindTimeout, "x", "")))
	assert.Equal(t, 1, exitCode(assert.AnError))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KiB", humanSize(1536))
	assert.Equal(t, "3.0 MiB", humanSize(3<<20))
}

func TestAskOverrides(t *testing.T) {
	a := AskCmd{Model: "thinking", KeepBrowser: true, Profile: "work"}
	over := a.overrides()
	assert.Equal(t, "thinking", over.Model)
	assert.True(t, over.Browser.KeepBrowser)
	assert.Equal(t, "work", over.Browser.Profile)
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatpilot.toml")

	require.NoError(t, runCLI(t, "-c", path, "config", "init"))
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Model, cfg.Model)

	err = runCLI(t, "-c", path, "config", "init")
	assert.Equal(t, apperr.KindInvalidConfig, apperr.KindOf(err))

	require.NoError(t, runCLI(t, "-c", path, "config", "init", "--force"))
	assert.FileExists(t, path+".bak")
}
