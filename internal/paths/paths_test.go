package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWriteCreatesParents(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "state", ".chatpilot-port")

	if err := AtomicWrite(target, []byte("9222\n"), 0600); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	if err := AtomicWrite(target, []byte("9333\n"), 0600); err != nil {
		t.Fatalf("second AtomicWrite failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "9333\n" {
		t.Errorf("unexpected content %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(target))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandTilde("~/profiles")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "profiles") {
		t.Errorf("got %s", got)
	}
	same, _ := ExpandTilde("/abs/path")
	if same != "/abs/path" {
		t.Errorf("absolute path changed: %s", same)
	}
}

func TestExpandTildeRejectsOtherUsers(t *testing.T) {
	if _, err := ExpandTilde("~bob/profiles"); err == nil {
		t.Error("expected error for ~bob")
	}
}

func TestHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	got, err := DataPath("metrics.db")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "metrics.db") {
		t.Errorf("got %s", got)
	}
}

func TestConfigPathOrder(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	t.Setenv(ConfigEnv, "")
	t.Chdir(t.TempDir())

	got, err := ConfigPath()
	if err != nil || got != "" {
		t.Fatalf("no config: got %q, %v", got, err)
	}

	global := filepath.Join(home, ConfigFile)
	if err := os.WriteFile(global, []byte(""), 0600); err != nil {
		t.Fatal(err)
	}
	if got, _ := ConfigPath(); got != global {
		t.Errorf("global: got %q", got)
	}

	if err := os.WriteFile(ConfigFile, []byte(""), 0600); err != nil {
		t.Fatal(err)
	}
	local, _ := filepath.Abs(ConfigFile)
	if got, _ := ConfigPath(); got != local {
		t.Errorf("local: got %q", got)
	}

	explicit := filepath.Join(home, "other.toml")
	t.Setenv(ConfigEnv, explicit)
	if _, err := ConfigPath(); err == nil {
		t.Error("missing explicit config should error")
	}
	if err := os.WriteFile(explicit, []byte(""), 0600); err != nil {
		t.Fatal(err)
	}
	if got, _ := ConfigPath(); got != explicit {
		t.Errorf("explicit: got %q", got)
	}
}
