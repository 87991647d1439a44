package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(KindRequiresSignIn, "wait-for-ui", "redirected to %s", "/auth/login")
	wrapped := fmt.Errorf("stage failed: %w", base)

	assert.Equal(t, KindRequiresSignIn, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindRequiresSignIn))
	assert.False(t, Is(wrapped, KindTimeout))
	assert.Contains(t, wrapped.Error(), "wait-for-ui: requires_sign_in: redirected to /auth/login")
}

func TestRemedyDefaultsAndOverride(t *testing.T) {
	err := New(KindMissingAuthCookies, "cookies", "no session token")
	assert.Contains(t, RemedyOf(err), "chatpilot login")

	err.WithRemedy("paste the cookie")
	assert.Equal(t, "paste the cookie", RemedyOf(err))

	assert.Empty(t, RemedyOf(errors.New("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	err := Wrap(KindProtocol, "eval", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, Wrap(KindProtocol, "eval", nil))
}

func TestStateOf(t *testing.T) {
	err := New(KindTimeout, "poll", "deadline").WithState(map[string]int{"turns": 2})
	assert.Equal(t, map[string]int{"turns": 2}, StateOf(fmt.Errorf("x: %w", err)))
}
