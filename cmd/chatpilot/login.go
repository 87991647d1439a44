package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/attach"
	"github.com/roelfdiedericks/chatpilot/internal/config"
	"github.com/roelfdiedericks/chatpilot/internal/engine"
	"github.com/roelfdiedericks/chatpilot/internal/mode"
)

type LoginCmd struct {
	Provider string `arg:"" optional:"" help:"Provider name (chatgpt, gemini). Defaults to the configured model's provider."`
	Profile  string `short:"p" help:"Browser profile name."`
}

func (l *LoginCmd) Run(g *Globals, ctx context.Context) error {
	if !stdinIsTerminal() {
		return apperr.New(apperr.KindInvalidConfig, "login", "login needs an interactive terminal")
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if l.Profile != "" {
		cfg.Browser.Profile = l.Profile
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	res, err := eng.Login(ctx, l.Provider, progress(false))
	if err != nil {
		return err
	}
	fmt.Printf("%s signed in (%s): %s\n", headerStyle.Render(res.Provider), res.Source, strings.Join(res.Cookies, ", "))
	return nil
}

// attachmentPlaceholder stands in for files when only the count matters.
var attachmentPlaceholder = attach.Attachment{DisplayName: "file"}

type ModeCmd struct {
	Model    string `short:"m" help:"Model or alias."`
	Files    int    `help:"Number of attachments."`
	ImageOps int    `help:"Number of image operations."`
	List     bool   `help:"List the known models."`
}

func (m *ModeCmd) Run(g *Globals) error {
	if m.List {
		for _, model := range mode.Models() {
			dom := "dom"
			if !model.DOM {
				dom = "http"
			}
			fmt.Printf("%-20s %-8s %s\n", model.Name, model.Provider, dom)
		}
		return nil
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Merge(config.Config{Model: m.Model}); err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	req := engine.Request{ImageOps: m.ImageOps}
	for i := 0; i < m.Files; i++ {
		req.Attachments = append(req.Attachments, attachmentPlaceholder)
	}
	model, table, d, err := eng.Decide(req)
	if err != nil {
		return err
	}
	fmt.Printf("%s on %s: %s\n", headerStyle.Render(model.Name), table.Name, d)
	return nil
}
