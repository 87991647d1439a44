package browser

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// DefaultProfile is used when no profile name is configured.
const DefaultProfile = "default"

// ProfileInfo describes one persistent browser profile and the browser
// recorded against it, if any.
type ProfileInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	LastUsed time.Time `json:"lastUsed"`
	Port     int       `json:"port,omitempty"`
	PID      int       `json:"pid,omitempty"`
	Running  bool      `json:"running"`
}

// Profiles manages the named profile directories under one root.
type Profiles struct {
	root  string
	alive func(pid int) bool
}

func NewProfiles(root string) *Profiles {
	return &Profiles{root: root, alive: processAlive}
}

// ValidProfileName rejects names that would escape the profiles root.
func ValidProfileName(name string) error {
	switch {
	case name == "":
		return nil
	case name == "." || name == "..":
		return fmt.Errorf("invalid profile name %q", name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("invalid profile name %q: must not contain path separators", name)
	}
	return nil
}

// Dir returns the directory for name without creating it.
func (p *Profiles) Dir(name string) string {
	if name == "" {
		name = DefaultProfile
	}
	return filepath.Join(p.root, name)
}

// Ensure creates the profile directory when missing and returns it.
func (p *Profiles) Ensure(name string) (string, error) {
	if err := ValidProfileName(name); err != nil {
		return "", err
	}
	dir := p.Dir(name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create profile %s: %w", dir, err)
	}
	return dir, nil
}

func (p *Profiles) Exists(name string) bool {
	fi, err := os.Stat(p.Dir(name))
	return err == nil && fi.IsDir()
}

// List returns every profile sorted by name. A missing root is empty.
func (p *Profiles) List() ([]ProfileInfo, error) {
	entries, err := os.ReadDir(p.root)
	if os.IsNotExist(err) {
		return []ProfileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", p.root, err)
	}

	out := make([]ProfileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := p.Info(e.Name())
		if err != nil {
			L_warn("browser: skipping profile", "name", e.Name(), "error", err)
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Info measures a profile and reads its recorded browser state.
func (p *Profiles) Info(name string) (ProfileInfo, error) {
	dir := p.Dir(name)
	info := ProfileInfo{Name: filepath.Base(dir), Path: dir}

	st := NewStateStore(dir).Read()
	info.Port = st.ActivePort
	info.PID = st.PID
	info.Running = st.PID != 0 && p.alive(st.PID)

	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			// browsers delete cache files while we walk
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			info.Size += fi.Size()
		}
		if fi.ModTime().After(info.LastUsed) {
			info.LastUsed = fi.ModTime()
		}
		return nil
	})
	return info, err
}

// Clear deletes a profile's contents, including saved sign-ins. A profile
// whose recorded browser is still alive is refused.
func (p *Profiles) Clear(name string) error {
	if err := ValidProfileName(name); err != nil {
		return err
	}
	if !p.Exists(name) {
		return fmt.Errorf("profile %q does not exist", name)
	}
	info, err := p.Info(name)
	if err != nil {
		return err
	}
	if info.Running {
		return fmt.Errorf("profile %q is in use by pid %d; run 'chatpilot profiles stop %s' first", name, info.PID, name)
	}

	entries, err := os.ReadDir(info.Path)
	if err != nil {
		return fmt.Errorf("read profile %s: %w", info.Path, err)
	}
	failed := 0
	for _, e := range entries {
		path := filepath.Join(info.Path, e.Name())
		if err := os.RemoveAll(path); err != nil {
			L_warn("browser: could not remove", "path", path, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("profile %q: %d entries could not be removed", name, failed)
	}
	L_info("browser: cleared profile", "name", name)
	return nil
}
