package browser

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/devices"
)

// BrowserConfig holds browser configuration
type BrowserConfig struct {
	Dir               string   `toml:"dir"`               // Browser data directory (empty = <data dir>/browser)
	BrowserPath       string   `toml:"browserPath"`       // Explicit Chrome/Chromium binary
	AutoDownload      bool     `toml:"autoDownload"`      // Download Chromium if no binary is found
	Headless          bool     `toml:"headless"`          // Run in headless mode
	NoSandbox         bool     `toml:"noSandbox"`         // Disable sandbox (needed for Docker/root)
	Stealth           bool     `toml:"stealth"`           // Stealth pages + automation flags hidden
	Device            string   `toml:"device"`            // Device emulation: "clear", "laptop", ...
	Profile           string   `toml:"profile"`           // Profile name under <Dir>/profiles
	ProfileDir        string   `toml:"profileDir"`        // Explicit profile directory (overrides Profile)
	DebugPort         int      `toml:"debugPort"`         // Remote debugging port (0 = pick a free one)
	KeepBrowser       bool     `toml:"keepBrowser"`       // Leave the process running for the next invocation
	LaunchTimeout     string   `toml:"launchTimeout"`     // e.g. "30s"
	NavigationTimeout string   `toml:"navigationTimeout"` // e.g. "45s"
	ExtraFlags        []string `toml:"extraFlags"`        // Additional Chrome flags, "name" or "name=value"
}

// DefaultBrowserConfig returns the default browser configuration
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		AutoDownload:      true,
		Headless:          false,
		Stealth:           true,
		Device:            "clear", // No viewport emulation, fills window
		Profile:           "default",
		LaunchTimeout:     "30s",
		NavigationTimeout: "45s",
	}
}

// ResolveDir returns the browser directory, defaulting to <baseDir>/browser
func (c *BrowserConfig) ResolveDir(baseDir string) string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Join(baseDir, "browser")
}

// ResolveBinDir returns the chromium download directory
func (c *BrowserConfig) ResolveBinDir(baseDir string) string {
	return filepath.Join(c.ResolveDir(baseDir), "bin")
}

// ResolveProfilesDir returns the profiles directory
func (c *BrowserConfig) ResolveProfilesDir(baseDir string) string {
	return filepath.Join(c.ResolveDir(baseDir), "profiles")
}

// ResolveLaunchTimeout returns the launch timeout as a Duration
func (c *BrowserConfig) ResolveLaunchTimeout() time.Duration {
	return parseDuration(c.LaunchTimeout, 30*time.Second)
}

// ResolveNavigationTimeout returns the navigation timeout as a Duration
func (c *BrowserConfig) ResolveNavigationTimeout() time.Duration {
	return parseDuration(c.NavigationTimeout, 45*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ResolveDevice returns the devices.Device for the configured device name.
// Supported friendly names:
//   - "clear" - No emulation, browser fills window (default)
//   - "laptop" or "laptop-mdpi" - LaptopWithMDPIScreen (1280x800)
//   - "laptop-hidpi" - LaptopWithHiDPIScreen (1440x900, 2x DPI)
//   - "ipad-pro" - iPadPro
func (c *BrowserConfig) ResolveDevice() devices.Device {
	switch strings.ToLower(c.Device) {
	case "laptop", "laptop-mdpi":
		return devices.LaptopWithMDPIScreen
	case "laptop-hidpi":
		return devices.LaptopWithHiDPIScreen
	case "ipad-pro":
		return devices.IPadPro
	default:
		return devices.Clear
	}
}
