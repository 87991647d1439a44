package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	domModel := Model{Name: "m", DOM: true}
	httpModel := Model{Name: "h"}

	tests := []struct {
		name    string
		model   Model
		req     Request
		mode    Mode
		reasons []string
	}{
		{"dom model, nothing attached", domModel, Request{}, DOM, []string{}},
		{"dom model, one attachment", domModel, Request{Attachments: 1}, HTTP, []string{ReasonAttachments}},
		{"dom model, image op", domModel, Request{ImageOperations: 2}, HTTP, []string{ReasonImageOperations}},
		{"non-dom model", httpModel, Request{}, HTTP, []string{ReasonModel}},
		{"everything", httpModel, Request{Attachments: 3, ImageOperations: 1}, HTTP,
			[]string{ReasonModel, ReasonAttachments, ReasonImageOperations}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Select(tt.model, tt.req)
			assert.Equal(t, tt.mode, d.Mode)
			assert.Equal(t, tt.reasons, d.Reasons)
		})
	}
}

func TestSelectIsPure(t *testing.T) {
	m := Model{DOM: true}
	r := Request{Attachments: 1}
	assert.Equal(t, Select(m, r), Select(m, r))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "dom", Select(Model{DOM: true}, Request{}).String())
	assert.Equal(t, "http (model, attachments)", Select(Model{}, Request{Attachments: 1}).String())
}

func TestLookup(t *testing.T) {
	m, ok := Lookup("GPT-5-Thinking")
	require.True(t, ok)
	assert.Equal(t, "chatgpt", m.Provider)
	assert.Equal(t, "Thinking", m.ModePhrase)

	m, ok = Lookup("gemini")
	require.True(t, ok)
	assert.Equal(t, "gemini-2.5-pro", m.Name)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestModelsSorted(t *testing.T) {
	models := Models()
	require.NotEmpty(t, models)
	for i := 1; i < len(models); i++ {
		assert.Less(t, models[i-1].Name, models[i].Name)
	}
}
