// Command chatpilot sends prompts to chat web apps through a local browser.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/config"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

var version = "0.3.0"

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"Config file (default: the CHATPILOT_CONFIG file, ./chatpilot.toml, then ~/.chatpilot/chatpilot.toml)." type:"path" short:"c"`
	Debug  bool   `help:"Debug logging." short:"d"`
}

// loadConfig reads the config file named by --config or the default one.
func (g *Globals) loadConfig() (*config.Config, error) {
	if g.Config != "" {
		return config.LoadFile(g.Config)
	}
	cfg, path, err := config.Load()
	if err == nil && path != "" {
		L_debug("using config", "path", path)
	}
	return cfg, err
}

type CLI struct {
	Globals

	Ask      AskCmd      `cmd:"" default:"withargs" help:"Send a prompt and print the answer."`
	Login    LoginCmd    `cmd:"" help:"Sign in to a provider in a visible browser window."`
	Profiles ProfilesCmd `cmd:"" help:"List, clear or stop browser profiles."`
	Mode     ModeCmd     `cmd:"" help:"Show the execution mode a request would use."`
	Stats    StatsCmd    `cmd:"" help:"Show request timings and outcomes per provider."`
	Setup    ConfigCmd   `cmd:"" name:"config" help:"Create or locate the config file."`
	Version  VersionCmd  `cmd:"" help:"Print the version."`
}

type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Printf("chatpilot %s\n", version)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("chatpilot"),
		kong.Description("Drive chat web apps from the command line."),
		kong.UsageOnError(),
	)

	level := LevelWarn
	if cli.Debug {
		level = LevelDebug
	}
	Init(&Config{Level: level, TimeFormat: "15:04:05", ShowCaller: cli.Debug})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run(&cli.Globals)
	stop()
	if err != nil {
		printError(err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps failure kinds to distinct statuses for scripts.
func exitCode(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidConfig:
		return 2
	case apperr.KindRequiresSignIn, apperr.KindSignInTimeout, apperr.KindMissingAuthCookies:
		return 3
	case apperr.KindModeUnavailable:
		return 4
	case apperr.KindTimeout:
		return 5
	}
	return 1
}
