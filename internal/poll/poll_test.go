package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
)

func TestUntilImmediateSuccess(t *testing.T) {
	calls := 0
	start := time.Now()
	state, err := Until(context.Background(), Options{Timeout: time.Second, Interval: 20 * time.Millisecond},
		func(ctx context.Context) (bool, any, error) {
			calls++
			return true, "ready", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ready", state)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestUntilImmediateSuccessWithStability(t *testing.T) {
	stable := 80 * time.Millisecond
	start := time.Now()
	_, err := Until(context.Background(), Options{Timeout: 2 * time.Second, Interval: 20 * time.Millisecond, Stable: stable},
		func(ctx context.Context) (bool, any, error) {
			return true, nil, nil
		})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, stable)
	// at most one stability window, with scheduling slack
	assert.Less(t, elapsed, 2*stable)
}

func TestUntilTimeoutBounds(t *testing.T) {
	timeout := 150 * time.Millisecond
	interval := 40 * time.Millisecond
	start := time.Now()
	state, err := Until(context.Background(), Options{Timeout: timeout, Interval: interval, Label: "wait-for-ui"},
		func(ctx context.Context) (bool, any, error) {
			return false, "spinner", nil
		})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindTimeout))
	assert.Equal(t, "spinner", state)
	assert.Equal(t, "spinner", apperr.StateOf(err))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+interval+30*time.Millisecond)
}

func TestUntilStabilityResetsOnFlicker(t *testing.T) {
	seq := []bool{true, false, true, true, true, true, true, true}
	i := 0
	_, err := Until(context.Background(), Options{Timeout: time.Second, Interval: 10 * time.Millisecond, Stable: 30 * time.Millisecond},
		func(ctx context.Context) (bool, any, error) {
			ok := true
			if i < len(seq) {
				ok = seq[i]
			}
			i++
			return ok, i, nil
		})
	require.NoError(t, err)
	// flicker at probe 2 means success was only counted from probe 3
	assert.GreaterOrEqual(t, i, 4)
}

func TestUntilProbeErrorAborts(t *testing.T) {
	boom := errors.New("target closed")
	_, err := Until(context.Background(), Options{Timeout: time.Second},
		func(ctx context.Context) (bool, any, error) {
			return false, nil, boom
		})
	assert.ErrorIs(t, err, boom)
}

func TestUntilContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Until(ctx, Options{Timeout: 5 * time.Second, Interval: 10 * time.Millisecond},
		func(ctx context.Context) (bool, any, error) {
			return false, nil, nil
		})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Second), context.Canceled)
}
