// Package apperr defines the failure kinds surfaced by the automation engine.
// Every kind is terminal for the current request; callers pick fallbacks by kind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindTimeout                  Kind = "timeout"
	KindRequiresSignIn           Kind = "requires_sign_in"
	KindSignInTimeout            Kind = "sign_in_timeout"
	KindMissingAuthCookies       Kind = "missing_auth_cookies"
	KindProtocol                 Kind = "protocol_error"
	KindUnacknowledgedAttachment Kind = "unacknowledged_attachment"
	KindUnsupportedControl       Kind = "unsupported_control"
	KindModeUnavailable          Kind = "mode_unavailable"
	KindInvalidConfig            Kind = "invalid_config"
)

var defaultRemedies = map[Kind]string{
	KindTimeout:                  "the page did not reach the expected state in time; retry, or raise the timeout",
	KindRequiresSignIn:           "sign in to the provider in the browser profile (chatpilot login) and retry",
	KindSignInTimeout:            "complete the sign-in in the opened browser window before the deadline",
	KindMissingAuthCookies:       "sign in with your browser, pass cookies inline, or run chatpilot login",
	KindProtocol:                 "the browser connection was lost; retry, and remove stale profile state if it persists",
	KindUnacknowledgedAttachment: "the page never showed the attachment; retry without --keep-browser or attach fewer files",
	KindUnsupportedControl:       "the provider page layout changed; update the selector table",
	KindModeUnavailable:          "this request needs the HTTP path; drop attachments or use a DOM-capable model",
	KindInvalidConfig:            "fix the configuration file and retry",
}

// Error is a classified failure with a user-facing remedy.
type Error struct {
	Kind    Kind
	Op      string // operation or stage that failed
	Message string
	Remedy  string
	State   any // last observed state, for diagnostics
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. Returns nil for a nil err.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithState attaches the last observed state.
func (e *Error) WithState(state any) *Error {
	e.State = state
	return e
}

// WithRemedy overrides the default remedy hint.
func (e *Error) WithRemedy(remedy string) *Error {
	e.Remedy = remedy
	return e
}

// KindOf returns the kind of the outermost classified error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StateOf returns the diagnostic state attached to err, if any.
func StateOf(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.State
	}
	return nil
}

// RemedyOf returns the remedy hint for err, falling back to the kind default.
func RemedyOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	if e.Remedy != "" {
		return e.Remedy
	}
	return defaultRemedies[e.Kind]
}
