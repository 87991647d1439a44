// Package providers drives chat web apps from selector tables. Each
// supported provider is a Table; overrides from a YAML file let users
// patch selectors when a page changes without rebuilding.
package providers

import (
	"github.com/roelfdiedericks/chatpilot/internal/attach"
	"github.com/roelfdiedericks/chatpilot/internal/cookies"
	"github.com/roelfdiedericks/chatpilot/internal/dom"
)

// Table is everything the generic adapter needs to know about a provider.
type Table struct {
	Name      string `yaml:"name" toml:"name"`
	BaseURL   string `yaml:"baseURL" toml:"baseURL"`
	SignInURL string `yaml:"signInURL" toml:"signInURL"`

	Cookies CookieTable `yaml:"cookies" toml:"cookies"`

	// Composer
	Input dom.Selectors `yaml:"input" toml:"input"`
	Send  dom.Selectors `yaml:"send" toml:"send"`

	// Sign-in detection
	SignIn      dom.Selectors `yaml:"signIn" toml:"signIn"`
	SignInPaths []string      `yaml:"signInPaths" toml:"signInPaths"` // URL substrings

	// Conversation
	Turns           dom.Selectors `yaml:"turns" toml:"turns"` // assistant turns
	UserTurns       dom.Selectors `yaml:"userTurns" toml:"userTurns"`
	Done            dom.Selectors `yaml:"done" toml:"done"`
	Thinking        dom.Selectors `yaml:"thinking" toml:"thinking"`
	Spinner         dom.Selectors `yaml:"spinner" toml:"spinner"`
	ThinkingPhrases []string      `yaml:"thinkingPhrases" toml:"thinkingPhrases"`

	Mode        *ModeTable        `yaml:"mode,omitempty" toml:"mode,omitempty"`
	SideChannel *SideChannelTable `yaml:"sideChannel,omitempty" toml:"sideChannel,omitempty"`
	Attach      attach.Selectors  `yaml:"attach" toml:"attach"`
}

// CookieTable lists the provider's auth cookies.
type CookieTable struct {
	Required   []string `yaml:"required" toml:"required"`
	Allow      []string `yaml:"allow" toml:"allow"`
	Origins    []string `yaml:"origins" toml:"origins"`
	ApexDomain string   `yaml:"apexDomain" toml:"apexDomain"`
}

// ModeTable locates the mode picker.
type ModeTable struct {
	Menu   dom.Selectors `yaml:"menu" toml:"menu"`
	Items  dom.Selectors `yaml:"items" toml:"items"`
	Active dom.Selectors `yaml:"active" toml:"active"` // shows the selected mode
}

// SideChannelTable locates the reasoning-trace disclosure.
type SideChannelTable struct {
	Toggle  dom.Selectors `yaml:"toggle" toml:"toggle"`
	Content dom.Selectors `yaml:"content" toml:"content"`
	Label   string        `yaml:"label" toml:"label"`
}

// CookieSpec builds the cookie chain's view of the table.
func (t Table) CookieSpec() cookies.Spec {
	return cookies.Spec{
		Provider:   t.Name,
		Required:   t.Cookies.Required,
		Allow:      t.Cookies.Allow,
		Origins:    t.Cookies.Origins,
		ApexDomain: t.Cookies.ApexDomain,
		SignInURL:  t.SignInURL,
	}
}

// AttachSelectors fills unset attachment selectors from the table.
func (t Table) AttachSelectors() attach.Selectors {
	s := t.Attach
	if len(s.UserTurns) == 0 {
		s.UserTurns = t.UserTurns
	}
	return s
}

// ResponseQuery is the dom query WaitForResponse polls.
func (t Table) ResponseQuery() dom.ResponseQuery {
	return dom.ResponseQuery{
		Turns:           t.Turns,
		Done:            t.Done,
		Thinking:        t.Thinking,
		Spinner:         t.Spinner,
		ThinkingPhrases: t.ThinkingPhrases,
	}
}
