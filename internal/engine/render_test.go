package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name, html, text, want string
	}{
		{"converted", "<p>Use <code>go test</code> and <em>relax</em>.</p>", "", "Use `go test` and *relax*."},
		{"list", "<ul><li>one</li><li>two</li></ul>", "", "- one\n- two"},
		{"no html", "", "  plain answer \n", "plain answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderMarkdown(tt.html, tt.text, "https://chatgpt.com/"))
		})
	}
}

func TestSideChannelBlock(t *testing.T) {
	assert.Empty(t, sideChannelBlock("  "))
	assert.Equal(t, "> **Thinking**\n>\n> first\n>\n> second\n\n", sideChannelBlock("first\n\nsecond\n"))
}
