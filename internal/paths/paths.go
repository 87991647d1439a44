// Package paths resolves chatpilot's on-disk locations.
// Only stdlib imports: every other package may depend on it.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnv relocates the whole data directory.
	HomeEnv = "CHATPILOT_HOME"
	// ConfigEnv names an explicit config file.
	ConfigEnv = "CHATPILOT_CONFIG"

	ConfigFile = "chatpilot.toml"
)

// BaseDir returns $CHATPILOT_HOME or ~/.chatpilot.
func BaseDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return ExpandTilde(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".chatpilot"), nil
}

// DataPath joins subpath onto BaseDir.
func DataPath(subpath string) (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, subpath), nil
}

// ConfigPath finds the config file to load, in order: $CHATPILOT_CONFIG,
// ./chatpilot.toml, <BaseDir>/chatpilot.toml. No config at all is ("", nil).
// An explicit $CHATPILOT_CONFIG that does not exist is an error.
func ConfigPath() (string, error) {
	if explicit := os.Getenv(ConfigEnv); explicit != "" {
		path, err := ExpandTilde(explicit)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s: %w", ConfigEnv, err)
		}
		return path, nil
	}

	if _, err := os.Stat(ConfigFile); err == nil {
		return filepath.Abs(ConfigFile)
	}

	global, err := DataPath(ConfigFile)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}

// EnsureDir creates path with owner-only write access.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// ExpandTilde expands a leading "~" or "~/". Other paths are returned
// unchanged; "~user" forms are not supported.
func ExpandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		if strings.HasPrefix(path, "~") {
			return "", fmt.Errorf("unsupported home reference in %q", path)
		}
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
