package main

import (
	"fmt"

	"github.com/roelfdiedericks/chatpilot/internal/config"
	"github.com/roelfdiedericks/chatpilot/internal/paths"
)

type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a config file with the default settings."`
	Path ConfigPathCmd `cmd:"" help:"Print the config file in use."`
}

type ConfigInitCmd struct {
	Force bool `short:"f" help:"Replace an existing file (kept as .bak)."`
}

func (c *ConfigInitCmd) Run(g *Globals) error {
	path, err := config.Init(g.Config, c.Force)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

type ConfigPathCmd struct{}

func (ConfigPathCmd) Run(g *Globals) error {
	path := g.Config
	if path == "" {
		p, err := paths.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if path == "" {
		fmt.Println("no config file; built-in defaults apply")
		return nil
	}
	fmt.Println(path)
	return nil
}
