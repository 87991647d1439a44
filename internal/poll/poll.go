// Package poll implements the cooperative wait loop every DOM interaction is built on.
package poll

import (
	"context"
	"time"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
)

// DefaultInterval is the probe spacing when Options.Interval is zero.
const DefaultInterval = 100 * time.Millisecond

// Options controls a wait.
type Options struct {
	Timeout  time.Duration // required; the wait fails with KindTimeout after this
	Interval time.Duration // sleep between probes
	Stable   time.Duration // success must hold continuously this long (0 = first success wins)
	Label    string        // operation name used in the timeout error
}

// Probe evaluates the condition once. A non-nil error aborts the wait.
type Probe func(ctx context.Context) (ok bool, state any, err error)

// Until probes until the condition holds (stably, when Stable > 0) and returns
// the last state. On deadline it returns a KindTimeout error carrying the last
// observed state. The wait never returns later than Timeout plus one Interval
// (plus the duration of the final probe).
func Until(ctx context.Context, opts Options, probe Probe) (any, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	label := opts.Label
	if label == "" {
		label = "poll"
	}

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	var (
		last     any
		okSince  time.Time
		attempts int
	)

	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		ok, state, err := probe(ctx)
		attempts++
		last = state
		if err != nil {
			return last, err
		}

		now := time.Now()
		if ok {
			if opts.Stable <= 0 {
				return last, nil
			}
			if okSince.IsZero() {
				okSince = now
			}
			if now.Sub(okSince) >= opts.Stable {
				return last, nil
			}
		} else {
			okSince = time.Time{}
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return last, apperr.New(apperr.KindTimeout, label,
				"condition not met after %s (%d probes)", opts.Timeout, attempts).WithState(last)
		}

		wait := interval
		if ok && opts.Stable > 0 {
			// Wake up exactly when the stability window closes
			if left := opts.Stable - now.Sub(okSince); left < wait {
				wait = left
			}
		}
		if wait > remaining {
			wait = remaining
		}
		if err := Sleep(ctx, wait); err != nil {
			return last, err
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
