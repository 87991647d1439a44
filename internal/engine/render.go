package engine

import (
	"net/url"
	"strings"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"

	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// renderMarkdown converts the answer HTML, falling back to readability's
// text and finally to the plain text the page reported.
func renderMarkdown(html, text, baseURL string) string {
	if strings.TrimSpace(html) == "" {
		return strings.TrimSpace(text)
	}

	md, err := htmltomd.ConvertString(html)
	if err == nil && strings.TrimSpace(md) != "" {
		return strings.TrimSpace(md)
	}
	L_warn("engine: html-to-markdown failed, falling back to readability", "error", err)

	parsedURL, _ := url.Parse(baseURL)
	if parsedURL == nil {
		parsedURL = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader("<html><body>"+html+"</body></html>"), parsedURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent)
	}
	return strings.TrimSpace(text)
}

// sideChannelBlock quotes the reasoning trace ahead of the answer.
func sideChannelBlock(trace string) string {
	trace = strings.TrimSpace(trace)
	if trace == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("> **Thinking**\n>\n")
	for _, line := range strings.Split(trace, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			b.WriteString(">\n")
			continue
		}
		b.WriteString("> " + line + "\n")
	}
	b.WriteString("\n")
	return b.String()
}
