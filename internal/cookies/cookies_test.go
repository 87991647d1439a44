package cookies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpec = Spec{
	Provider:   "chatgpt",
	Required:   []string{"session", "device"},
	Allow:      []string{"cf_clearance"},
	Origins:    []string{"https://chatgpt.com"},
	ApexDomain: "chatgpt.com",
	SignInURL:  "https://chatgpt.com/auth/login",
}

func TestSatisfies(t *testing.T) {
	assert.True(t, testSpec.Satisfies(Map{"session": "a", "device": "b"}))
	assert.False(t, testSpec.Satisfies(Map{"session": "a"}))
	assert.False(t, testSpec.Satisfies(Map{"session": "a", "device": ""}))
	assert.Equal(t, []string{"device"}, testSpec.Missing(Map{"session": "a"}))
}

func TestMergeInlineWins(t *testing.T) {
	base := Map{"session": "stored", "cf_clearance": "x"}
	over := Map{"session": "inline", "device": "d", "empty": ""}

	got := base.Merge(over)
	assert.Equal(t, Map{"session": "inline", "cf_clearance": "x", "device": "d"}, got)
	assert.Equal(t, "stored", base["session"])
}

func TestPickDomainRule(t *testing.T) {
	tests := []struct {
		name  string
		cands []Candidate
		want  string
	}{
		{
			name: "exact apex with root path wins",
			cands: []Candidate{
				{Name: "session", Value: "sub", Domain: "auth.chatgpt.com", Path: "/"},
				{Name: "session", Value: "apex", Domain: ".chatgpt.com", Path: "/"},
			},
			want: "apex",
		},
		{
			name: "suffix of apex beats unrelated",
			cands: []Candidate{
				{Name: "session", Value: "other", Domain: "example.org", Path: "/"},
				{Name: "session", Value: "suffix", Domain: ".com", Path: "/"},
			},
			want: "suffix",
		},
		{
			name: "apex with deep path ranks as suffix",
			cands: []Candidate{
				{Name: "session", Value: "deep", Domain: "chatgpt.com", Path: "/backend"},
				{Name: "session", Value: "root", Domain: "chatgpt.com", Path: "/"},
			},
			want: "root",
		},
		{
			name: "first match otherwise",
			cands: []Candidate{
				{Name: "session", Value: "first", Domain: "a.example"},
				{Name: "session", Value: "second", Domain: "b.example"},
			},
			want: "first",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pick(tt.cands, "chatgpt.com")["session"])
		})
	}
}

func TestParseExportShapes(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"array", `[{"name":"session","value":"s","domain":".chatgpt.com","path":"/"},{"name":"device","value":"d","domain":"chatgpt.com"}]`},
		{"storage state", `{"cookies":[{"name":"session","value":"s","domain":".chatgpt.com"},{"name":"device","value":"d","domain":"chatgpt.com"}],"origins":[]}`},
		{"plain object", `{"session":"s","device":"d"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands, err := ParseExport([]byte(tt.json))
			require.NoError(t, err)
			m := Pick(cands, "chatgpt.com")
			assert.Equal(t, "s", m["session"])
			assert.Equal(t, "d", m["device"])
		})
	}

	_, err := ParseExport([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadExportDropsForeignDomains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name":"session","value":"ok","domain":".chatgpt.com"},
		{"name":"tracker","value":"no","domain":".ads.example"}
	]`), 0600))

	m, err := LoadExport(path, testSpec)
	require.NoError(t, err)
	assert.Equal(t, Map{"session": "ok"}, m)
}

func TestParams(t *testing.T) {
	params := Params(testSpec, Map{"session": "s", "__Host-csrf": "c"})
	require.Len(t, params, 2)

	// Sorted by name
	assert.Equal(t, "__Host-csrf", params[0].Name)
	assert.Empty(t, params[0].Domain)
	assert.Equal(t, "https://chatgpt.com", params[0].URL)

	assert.Equal(t, "session", params[1].Name)
	assert.Equal(t, ".chatgpt.com", params[1].Domain)
	assert.True(t, params[1].Secure)
}
