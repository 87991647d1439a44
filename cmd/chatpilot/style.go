package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

var (
	errorColor   = lipgloss.Color("196") // Red
	warningColor = lipgloss.Color("214") // Orange
	mutedColor   = lipgloss.Color("245") // Gray
	accentColor  = lipgloss.Color("39")  // Blue

	errorStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	remedyStyle   = lipgloss.NewStyle().Foreground(warningColor)
	progressStyle = lipgloss.NewStyle().Foreground(mutedColor)
	headerStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
)

func printError(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("error:")+" "+err.Error())
	if remedy := apperr.RemedyOf(err); remedy != "" {
		fmt.Fprintln(os.Stderr, remedyStyle.Render("hint: "+remedy))
	}
}

// progress mirrors engine progress lines to stderr.
func progress(quiet bool) LineFunc {
	if quiet {
		return Lines("", nil)
	}
	return Lines("", func(line string) {
		fmt.Fprintln(os.Stderr, progressStyle.Render(line))
	})
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
