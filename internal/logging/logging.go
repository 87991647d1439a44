// Package logging provides global logging functions for chatpilot.
// Use dot import to access L_info, L_error, etc. directly.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Log levels, most severe first.
const (
	LevelFatal = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// traceLevel sits below charm's debug level so --debug alone stays readable.
const traceLevel = log.DebugLevel - 4

var charmLevels = [...]log.Level{
	LevelFatal: log.FatalLevel,
	LevelError: log.ErrorLevel,
	LevelWarn:  log.WarnLevel,
	LevelInfo:  log.InfoLevel,
	LevelDebug: log.DebugLevel,
	LevelTrace: traceLevel,
}

// keys whose values never reach the log
var secretKeys = map[string]bool{
	"cookie":   true,
	"cookies":  true,
	"value":    true,
	"password": true,
	"token":    true,
}

var (
	current atomic.Pointer[log.Logger]
	initMu  sync.Mutex
)

// Config holds logging configuration
type Config struct {
	Level      int
	TimeFormat string
	ShowCaller bool
	Output     io.Writer // stderr when nil
}

// DefaultConfig returns the CLI defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		TimeFormat: "15:04:05",
	}
}

// Init installs the global logger. The first call wins; later calls only
// adjust the level.
func Init(cfg *Config) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	initMu.Lock()
	defer initMu.Unlock()
	if l := current.Load(); l != nil {
		l.SetLevel(charmLevel(cfg.Level))
		return
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		ReportCaller:    cfg.ShowCaller,
		CallerOffset:    1, // skip the L_* wrapper
		Level:           charmLevel(cfg.Level),
	})
	styles := log.DefaultStyles()
	styles.Levels[traceLevel] = lipgloss.NewStyle().SetString("TRAC").Faint(true)
	l.SetStyles(styles)
	current.Store(l)
}

func logger() *log.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(nil)
	return current.Load()
}

func charmLevel(level int) log.Level {
	if level < LevelFatal {
		level = LevelFatal
	}
	if level > LevelTrace {
		level = LevelTrace
	}
	return charmLevels[level]
}

// SetLevel changes the log level at runtime
func SetLevel(level int) {
	logger().SetLevel(charmLevel(level))
}

// hasFmtVerb reports whether s contains a printf verb (%% does not count).
func hasFmtVerb(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if s[i+1] == '%' {
			i++
			continue
		}
		if strings.IndexByte("vsdtfgeopqxXbcUT+#", s[i+1]) >= 0 {
			return true
		}
	}
	return false
}

// redact masks values for secret keys in a key/value list.
func redact(keyvals []interface{}) []interface{} {
	out := keyvals
	for i := 0; i+1 < len(keyvals); i += 2 {
		k, ok := keyvals[i].(string)
		if !ok || !secretKeys[strings.ToLower(k)] {
			continue
		}
		if &out[0] == &keyvals[0] {
			out = append([]interface{}(nil), keyvals...)
		}
		out[i+1] = "[redacted]"
	}
	return out
}

// emit accepts three shapes:
//
//	emit(lvl, "message")
//	emit(lvl, "value is %d", 42)
//	emit(lvl, "loaded", "key", val, ...)
func emit(level log.Level, msg string, args ...interface{}) {
	l := logger()
	if level < l.GetLevel() {
		return
	}
	switch {
	case len(args) == 0:
		l.Log(level, msg)
	case hasFmtVerb(msg):
		l.Log(level, fmt.Sprintf(msg, args...))
	default:
		l.Log(level, msg, redact(args)...)
	}
	if level == log.FatalLevel {
		os.Exit(1)
	}
}

// L_trace logs CDP and script level detail.
func L_trace(msg string, args ...interface{}) { emit(traceLevel, msg, args...) }

func L_debug(msg string, args ...interface{}) { emit(log.DebugLevel, msg, args...) }

func L_info(msg string, args ...interface{}) { emit(log.InfoLevel, msg, args...) }

func L_warn(msg string, args ...interface{}) { emit(log.WarnLevel, msg, args...) }

func L_error(msg string, args ...interface{}) { emit(log.ErrorLevel, msg, args...) }

// L_fatal logs and exits with status 1.
func L_fatal(msg string, args ...interface{}) { emit(log.FatalLevel, msg, args...) }

// L_elapsed logs at info level with the time since start appended.
func L_elapsed(start time.Time, msg string, args ...interface{}) {
	args = append(args, "elapsed", time.Since(start).Round(time.Millisecond).String())
	emit(log.InfoLevel, msg, args...)
}
