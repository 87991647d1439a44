package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/attach"
	"github.com/roelfdiedericks/chatpilot/internal/browser"
	"github.com/roelfdiedericks/chatpilot/internal/config"
	"github.com/roelfdiedericks/chatpilot/internal/engine"
)

type AskCmd struct {
	Prompt      []string          `arg:"" optional:"" help:"Prompt text. Read from stdin when omitted or '-'."`
	File        []string          `short:"f" type:"existingfile" help:"Attach a file (repeatable)."`
	Model       string            `short:"m" help:"Model or alias (gpt-5, thinking, gemini, ...)."`
	Mode        string            `help:"Force the execution mode: auto, dom or http."`
	Profile     string            `short:"p" help:"Browser profile name."`
	Cookie      map[string]string `help:"Inline auth cookie name=value (repeatable)."`
	CookieFile  string            `type:"existingfile" help:"JSON cookie export."`
	Manual      bool              `help:"Sign in interactively even when cookies are configured."`
	KeepBrowser bool              `help:"Leave the browser running for the next request."`
	Headless    bool              `help:"Run the browser headless."`
	Text        bool              `help:"Print plain text instead of markdown."`
	Quiet       bool              `short:"q" help:"No progress output."`
	Stats       bool              `help:"Print timing and size to stderr."`
}

func (a *AskCmd) Run(g *Globals, ctx context.Context) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Merge(a.overrides()); err != nil {
		return err
	}
	if len(a.Cookie) > 0 {
		if cfg.Auth.Cookies == nil {
			cfg.Auth.Cookies = map[string]string{}
		}
		for k, v := range a.Cookie {
			cfg.Auth.Cookies[k] = v
		}
	}

	prompt, err := a.prompt()
	if err != nil {
		return err
	}

	stats := openMetrics()
	defer stats.Close()

	eng, err := engine.New(cfg, engine.WithMetrics(stats))
	if err != nil {
		return err
	}

	req := engine.Request{Prompt: prompt, Log: progress(a.Quiet)}
	for _, f := range a.File {
		req.Attachments = append(req.Attachments, attach.Attachment{SourcePath: f})
	}

	res, err := eng.Run(ctx, req)
	if err != nil {
		return err
	}

	if a.Text {
		fmt.Println(res.AnswerText)
	} else {
		fmt.Println(res.AnswerMarkdown)
	}
	if a.Stats {
		fmt.Fprintln(os.Stderr, progressStyle.Render(res.String()))
	}
	return nil
}

func (a *AskCmd) overrides() config.Config {
	return config.Config{
		Model: a.Model,
		Mode:  a.Mode,
		Auth: config.AuthConfig{
			CookieFile: a.CookieFile,
			Manual:     a.Manual,
		},
		Browser: browser.BrowserConfig{
			Profile:     a.Profile,
			KeepBrowser: a.KeepBrowser,
			Headless:    a.Headless,
		},
	}
}

func (a *AskCmd) prompt() (string, error) {
	text := strings.Join(a.Prompt, " ")
	if text == "" || text == "-" {
		if stdinIsTerminal() {
			return "", apperr.New(apperr.KindInvalidConfig, "ask", "no prompt given")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.New(apperr.KindInvalidConfig, "ask", "empty prompt")
	}
	return text, nil
}
