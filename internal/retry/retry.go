// Package retry provides a bounded-attempt loop with pluggable backoff,
// used by the image pipeline for flaky CDN fetches.
package retry

import (
	"context"
	"time"
)

// BackoffFunc returns how long to wait after a failed attempt. Attempts
// are numbered from 1.
type BackoffFunc func(attempt int) time.Duration

// Linear waits step*attempt between attempts.
func Linear(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// None disables waiting between attempts.
func None() BackoffFunc {
	return func(int) time.Duration { return 0 }
}

var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn up to attempts times, waiting backoff(attempt) after each
// failure. It returns nil on the first success, the last error once the
// attempts are exhausted, or the context error if the wait is cut short.
func Do(ctx context.Context, attempts int, backoff BackoffFunc, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt < attempts {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return err
			}
		}
	}

	return lastErr
}
