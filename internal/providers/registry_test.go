package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	"github.com/roelfdiedericks/chatpilot/internal/dom"
)

func TestBuiltinTablesAreComplete(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"chatgpt", "gemini"}, r.Names())
	for _, name := range r.Names() {
		tbl, err := r.Get(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, tbl.SignInURL, name)
		assert.NotEmpty(t, tbl.Cookies.Required, name)
		assert.NotEmpty(t, tbl.Cookies.ApexDomain, name)
		assert.Equal(t, tbl.UserTurns, tbl.AttachSelectors().UserTurns, name)
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	tbl, err := NewRegistry().Get("ChatGPT")
	require.NoError(t, err)
	assert.Equal(t, "chatgpt", tbl.Name)
}

func TestGetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("claude")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidConfig))
	assert.Contains(t, err.Error(), "chatgpt, gemini")
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	body := `
providers:
  chatgpt:
    send:
      - 'button[data-testid="new-send"]'
    thinkingPhrases: ["Pondering"]
  ChatClone:
    baseURL: https://chat.example.com/
    input: ["textarea"]
    turns: [".answer"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	r := NewRegistry()
	require.NoError(t, r.LoadOverrides(path))

	tbl, err := r.Get("chatgpt")
	require.NoError(t, err)
	assert.Equal(t, dom.Selectors{`button[data-testid="new-send"]`}, tbl.Send)
	assert.Equal(t, []string{"Pondering"}, tbl.ThinkingPhrases)
	// untouched fields keep the built-in values
	assert.Equal(t, "https://chatgpt.com/", tbl.BaseURL)
	assert.NotEmpty(t, tbl.Input)

	clone, err := r.Get("chatclone")
	require.NoError(t, err)
	assert.Equal(t, "chatclone", clone.Name)
	assert.Equal(t, dom.Selectors{".answer"}, clone.Turns)
}

func TestLoadOverridesIncompleteTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  half:\n    baseURL: https://x.example/\n"), 0600))

	r := NewRegistry()
	require.NoError(t, r.LoadOverrides(path))
	_, err := r.Get("half")
	assert.True(t, apperr.Is(err, apperr.KindInvalidConfig))
}

func TestLoadOverridesBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers: [oops"), 0600))
	err := NewRegistry().LoadOverrides(path)
	assert.True(t, apperr.Is(err, apperr.KindInvalidConfig))
}
