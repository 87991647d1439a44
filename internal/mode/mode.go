// Package mode decides, before any browser is opened, whether a request can
// run through DOM automation or has to take the HTTP path.
package mode

import (
	"sort"
	"strings"
)

// Mode is an execution path.
type Mode string

const (
	DOM  Mode = "dom"
	HTTP Mode = "http"
)

// Reasons a request is routed to HTTP.
const (
	ReasonModel           = "model"
	ReasonAttachments     = "attachments"
	ReasonImageOperations = "image-operations"
)

// Model is a resolved model variant.
type Model struct {
	Name        string
	Provider    string // providers table name
	DOM         bool   // supports enhanced DOM automation
	ModePhrase  string // UI mode item to select, "" for the default mode
	SideChannel bool   // exposes a reasoning trace worth extracting
}

// Request is the part of a request the selector looks at.
type Request struct {
	Attachments     int
	ImageOperations int
}

// Decision is the chosen mode and, for HTTP, why.
type Decision struct {
	Mode    Mode
	Reasons []string
}

func (d Decision) String() string {
	if len(d.Reasons) == 0 {
		return string(d.Mode)
	}
	return string(d.Mode) + " (" + strings.Join(d.Reasons, ", ") + ")"
}

// Select picks DOM only for a DOM-capable model with no attachments and no
// image operations. Reasons are listed in a fixed order.
func Select(m Model, r Request) Decision {
	var reasons []string
	if !m.DOM {
		reasons = append(reasons, ReasonModel)
	}
	if r.Attachments > 0 {
		reasons = append(reasons, ReasonAttachments)
	}
	if r.ImageOperations > 0 {
		reasons = append(reasons, ReasonImageOperations)
	}
	if len(reasons) == 0 {
		return Decision{Mode: DOM, Reasons: []string{}}
	}
	return Decision{Mode: HTTP, Reasons: reasons}
}

var builtin = map[string]Model{
	"gpt-5":             {Name: "gpt-5", Provider: "chatgpt", DOM: true},
	"gpt-5-instant":     {Name: "gpt-5-instant", Provider: "chatgpt", DOM: true, ModePhrase: "Instant"},
	"gpt-5-thinking":    {Name: "gpt-5-thinking", Provider: "chatgpt", DOM: true, ModePhrase: "Thinking", SideChannel: true},
	"gpt-5-pro":         {Name: "gpt-5-pro", Provider: "chatgpt", DOM: false, ModePhrase: "Pro"},
	"gemini-2.5-flash":  {Name: "gemini-2.5-flash", Provider: "gemini", DOM: true, ModePhrase: "Fast"},
	"gemini-2.5-pro":    {Name: "gemini-2.5-pro", Provider: "gemini", DOM: true, ModePhrase: "Pro", SideChannel: true},
	"gemini-deep-think": {Name: "gemini-deep-think", Provider: "gemini", DOM: false, ModePhrase: "Deep Think"},
}

// Aliases map short names to variants.
var aliases = map[string]string{
	"chatgpt":  "gpt-5",
	"thinking": "gpt-5-thinking",
	"gemini":   "gemini-2.5-pro",
}

// Lookup resolves a model name or alias, case-insensitively.
func Lookup(name string) (Model, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[key]; ok {
		key = a
	}
	m, ok := builtin[key]
	return m, ok
}

// Models lists the built-in variants sorted by name.
func Models() []Model {
	out := make([]Model, 0, len(builtin))
	for _, m := range builtin {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
