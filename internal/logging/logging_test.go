package logging

import (
	"testing"

	"github.com/charmbracelet/log"
)

func TestRedactMasksSecrets(t *testing.T) {
	in := []interface{}{"name", "__Secure-next-auth.session-token", "Value", "abc123", "domain", ".chatgpt.com"}
	out := redact(in)

	if out[3] != "[redacted]" {
		t.Errorf("value not redacted: %v", out[3])
	}
	if out[1] != "__Secure-next-auth.session-token" || out[5] != ".chatgpt.com" {
		t.Errorf("non-secret values changed: %v", out)
	}
	if in[3] != "abc123" {
		t.Error("redact modified the caller's slice")
	}
}

func TestRedactOddList(t *testing.T) {
	out := redact([]interface{}{"password"})
	if len(out) != 1 || out[0] != "password" {
		t.Errorf("unexpected %v", out)
	}
}

func TestCharmLevelClamps(t *testing.T) {
	if charmLevel(-3) != log.FatalLevel {
		t.Error("below range should clamp to fatal")
	}
	if charmLevel(99) != traceLevel {
		t.Error("above range should clamp to trace")
	}
	if charmLevel(LevelWarn) != log.WarnLevel {
		t.Error("warn mapping")
	}
}
