package logging

import (
	"fmt"
	"strings"
)

// LineFunc receives plain text progress lines. Callers outside the engine
// (CLI, embedding programs) supply one to mirror progress to their own UI.
type LineFunc func(line string)

// Lines returns a LineFunc that forwards to fn and to the debug log.
// A nil fn only logs.
func Lines(prefix string, fn func(string)) LineFunc {
	return func(line string) {
		if prefix != "" {
			line = prefix + ": " + line
		}
		L_debug(line)
		if fn != nil {
			fn(line)
		}
	}
}

// Printf formats and emits a line. Safe on a nil LineFunc.
func (f LineFunc) Printf(format string, args ...interface{}) {
	if f == nil {
		return
	}
	f(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
