// Package config loads chatpilot.toml.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/browser"
	"github.com/roelfdiedericks/chatpilot/internal/logging"
	"github.com/roelfdiedericks/chatpilot/internal/paths"
)

// Execution mode overrides.
const (
	ModeAuto = "auto" // let the mode selector decide
	ModeDOM  = "dom"
	ModeHTTP = "http"
)

// Config is the merged chatpilot configuration.
type Config struct {
	Provider      string                `toml:"provider"` // empty = the model's provider
	Model         string                `toml:"model"`
	Mode          string                `toml:"mode"`          // auto, dom or http
	ModePhrase    string                `toml:"modePhrase"`    // overrides the model's UI mode label
	SideChannel   *bool                 `toml:"sideChannel"`   // nil = model default
	ProvidersFile string                `toml:"providersFile"` // YAML selector overrides
	AllowPrivate  bool                  `toml:"allowPrivate"`  // permit http and private hosts for provider URLs
	Auth          AuthConfig            `toml:"auth"`
	Timeouts      TimeoutsConfig        `toml:"timeouts"`
	Attach        AttachConfig          `toml:"attach"`
	Browser       browser.BrowserConfig `toml:"browser"`
}

// AuthConfig selects the cookie sources.
type AuthConfig struct {
	Cookies             map[string]string `toml:"cookies"`             // inline name=value
	CookieFile          string            `toml:"cookieFile"`          // JSON cookie export
	Manual              bool              `toml:"manual"`              // always sign in interactively
	ChromeCookies       bool              `toml:"chromeCookies"`       // read the local Chrome cookie store
	ChromeProfile       string            `toml:"chromeProfile"`       // Chrome profile dir; empty = default
	SafeStoragePassword string            `toml:"safeStoragePassword"` // Chrome Safe Storage secret
}

// TimeoutsConfig holds duration strings such as "45s" or "10m".
type TimeoutsConfig struct {
	Request  string `toml:"request"`
	UI       string `toml:"ui"`
	Response string `toml:"response"`
	SignIn   string `toml:"signIn"`
}

// AttachConfig tunes attachment verification.
type AttachConfig struct {
	Strategies    []string `toml:"strategies"` // native, data-transfer, drag-drop
	VerifyTimeout string   `toml:"verifyTimeout"`
	SentTimeout   string   `toml:"sentTimeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:    "gpt-5",
		Mode:     ModeAuto,
		Timeouts: TimeoutsConfig{
			Request:  "15m",
			UI:       "45s",
			Response: "10m",
			SignIn:   "5m",
		},
		Attach: AttachConfig{
			VerifyTimeout: "10s",
			SentTimeout:   "20s",
		},
		Browser: browser.DefaultBrowserConfig(),
	}
}

// Load reads the active config file ($CHATPILOT_CONFIG, ./chatpilot.toml,
// then the data dir). No file is not an error.
func Load() (*Config, string, error) {
	path, err := paths.ConfigPath()
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		logging.L_debug("config: no config file, using defaults")
		return Default(), "", nil
	}
	cfg, err := LoadFile(path)
	return cfg, path, err
}

// LoadFile decodes path over the defaults, so absent keys keep their
// default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidConfig, "load config", fmt.Errorf("%s: %w", path, err))
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		logging.L_warn("config: unknown keys ignored", "path", path, "keys", undecoded)
	}
	if err := cfg.expand(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.L_debug("config: loaded", "path", path, "provider", cfg.Provider, "model", cfg.Model)
	return cfg, nil
}

// Merge applies the non-zero fields of over, typically command-line flags.
func (c *Config) Merge(over Config) error {
	if err := mergo.Merge(c, over, mergo.WithOverride); err != nil {
		return apperr.Wrap(apperr.KindInvalidConfig, "merge config", err)
	}
	return c.Validate()
}

func (c *Config) expand() error {
	for _, p := range []*string{
		&c.ProvidersFile, &c.Auth.CookieFile, &c.Auth.ChromeProfile,
		&c.Browser.Dir, &c.Browser.BrowserPath, &c.Browser.ProfileDir,
	} {
		v, err := paths.ExpandTilde(*p)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "", ModeAuto, ModeDOM, ModeHTTP:
	default:
		return invalid("mode %q: want auto, dom or http", c.Mode)
	}
	durations := map[string]string{
		"timeouts.request":     c.Timeouts.Request,
		"timeouts.ui":          c.Timeouts.UI,
		"timeouts.response":    c.Timeouts.Response,
		"timeouts.signIn":      c.Timeouts.SignIn,
		"attach.verifyTimeout": c.Attach.VerifyTimeout,
		"attach.sentTimeout":   c.Attach.SentTimeout,
	}
	for key, v := range durations {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return invalid("%s: %q is not a positive duration", key, v)
		}
	}
	for _, s := range c.Attach.Strategies {
		switch s {
		case "native", "data-transfer", "drag-drop":
		default:
			return invalid("attach.strategies: unknown strategy %q", s)
		}
	}
	if c.Auth.CookieFile != "" {
		if _, err := os.Stat(c.Auth.CookieFile); err != nil {
			return invalid("auth.cookieFile: %v", err)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return apperr.New(apperr.KindInvalidConfig, "config", format, args...)
}

// ResolveMode returns the normalized mode override.
func (c *Config) ResolveMode() string {
	m := strings.ToLower(c.Mode)
	if m == "" {
		return ModeAuto
	}
	return m
}

func (c *Config) ResolveRequestTimeout() time.Duration {
	return ResolveTimeout(c.Timeouts.Request, 15*time.Minute)
}

func (c *Config) ResolveUITimeout() time.Duration {
	return ResolveTimeout(c.Timeouts.UI, 45*time.Second)
}

func (c *Config) ResolveResponseTimeout() time.Duration {
	return ResolveTimeout(c.Timeouts.Response, 10*time.Minute)
}

func (c *Config) ResolveSignInTimeout() time.Duration {
	return ResolveTimeout(c.Timeouts.SignIn, 5*time.Minute)
}

func (c *Config) ResolveVerifyTimeout() time.Duration {
	return ResolveTimeout(c.Attach.VerifyTimeout, 10*time.Second)
}

func (c *Config) ResolveSentTimeout() time.Duration {
	return ResolveTimeout(c.Attach.SentTimeout, 20*time.Second)
}

// ResolveTimeout parses s, returning fallback when s is empty or invalid.
func ResolveTimeout(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
