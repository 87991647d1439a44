package attach

import (
	"path/filepath"
	"regexp"
	"strings"
)

// MatchPolicy holds the heuristics that decide whether page text shows a
// file name. Providers truncate long names differently, so the thresholds
// are tunable rather than fixed.
type MatchPolicy struct {
	MinStemLen        int // shortest extension-less name matched on its own
	EllipsisMinPrefix int // shortest kept prefix accepted for "name…ext"
}

// DefaultMatchPolicy works for the built-in providers.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{MinStemLen: 4, EllipsisMinPrefix: 6}
}

var ellipsisRE = regexp.MustCompile(`(\S+?)(?:…|\.{3})(\S*)`)

// Matches reports whether text mentions name, either whole, by stem, or
// as a truncated "prefix…suffix" rendering. Case-insensitive.
func (p MatchPolicy) Matches(text, name string) bool {
	text = strings.ToLower(text)
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || text == "" {
		return false
	}
	if strings.Contains(text, name) {
		return true
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if p.MinStemLen > 0 && len([]rune(stem)) >= p.MinStemLen && strings.Contains(text, stem) {
		return true
	}

	for _, m := range ellipsisRE.FindAllStringSubmatch(text, -1) {
		if p.truncatedMatch(m[1], m[2], name) {
			return true
		}
	}
	return false
}

// truncatedMatch checks that some tail of pre (at least EllipsisMinPrefix
// long) starts name and that suf ends it.
func (p MatchPolicy) truncatedMatch(pre, suf, name string) bool {
	if suf != "" && !strings.HasSuffix(name, suf) {
		return false
	}
	min := p.EllipsisMinPrefix
	if min <= 0 {
		min = 1
	}
	for i := 0; i+min <= len(pre); i++ {
		if strings.HasPrefix(name, pre[i:]) {
			return len(pre[i:])+len(suf) <= len(name)
		}
	}
	return false
}
