package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/roelfdiedericks/chatpilot/internal/browser"
)

type ProfilesCmd struct {
	List  ProfilesListCmd  `cmd:"" default:"1" help:"List browser profiles."`
	Clear ProfilesClearCmd `cmd:"" help:"Delete a profile and its saved sign-ins."`
	Stop  ProfilesStopCmd  `cmd:"" help:"Stop a browser left running with --keep-browser."`
}

func manager(g *Globals) (*browser.Manager, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return browser.NewManager(cfg.Browser)
}

type ProfilesListCmd struct{}

func (ProfilesListCmd) Run(g *Globals) error {
	m, err := manager(g)
	if err != nil {
		return err
	}
	profiles, err := m.Profiles().List()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("no profiles")
		return nil
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-16s %10s  %-16s  %s", "PROFILE", "SIZE", "LAST USED", "BROWSER")))
	for _, p := range profiles {
		state := "-"
		if p.Running {
			state = fmt.Sprintf("running (port %d, pid %d)", p.Port, p.PID)
		}
		fmt.Printf("%-16s %10s  %-16s  %s\n", p.Name, humanSize(p.Size), p.LastUsed.Format("2006-01-02 15:04"), state)
	}
	return nil
}

type ProfilesClearCmd struct {
	Name string `arg:"" help:"Profile name."`
	Yes  bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *ProfilesClearCmd) Run(g *Globals) error {
	m, err := manager(g)
	if err != nil {
		return err
	}
	if !c.Yes && stdinIsTerminal() {
		fmt.Printf("Delete profile %q and its saved sign-ins? [y/N] ", c.Name)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Println("aborted")
			return nil
		}
	}
	if err := m.Profiles().Clear(c.Name); err != nil {
		return err
	}
	fmt.Printf("cleared %s\n", c.Name)
	return nil
}

type ProfilesStopCmd struct {
	Name string `arg:"" optional:"" help:"Profile name (default: the configured profile)."`
}

func (c *ProfilesStopCmd) Run(g *Globals, ctx context.Context) error {
	m, err := manager(g)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stopped, err := m.StopProfile(ctx, c.Name)
	if err != nil {
		return err
	}
	if stopped {
		fmt.Println("browser stopped")
	} else {
		fmt.Println("no browser running")
	}
	return nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
