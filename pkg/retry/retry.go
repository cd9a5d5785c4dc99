// Package retry provides a small retry-with-backoff combinator so the
// attempt/backoff policy can be tested apart from the I/O it wraps.
package retry

import (
	"context"
	"time"
)

// BackoffFunc returns the wait applied after the given failed attempt
// (1-based). No wait is applied after the final attempt.
type BackoffFunc func(attempt int) time.Duration

// Linear grows the wait by step per attempt: step, 2×step, 3×step, ...
func Linear(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

type Policy struct {
	Attempts int
	Backoff  BackoffFunc

	// Sleep is the wait primitive; tests may replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(attempts int, backoff BackoffFunc) *Policy {
	if attempts < 1 {
		attempts = 1
	}
	return &Policy{Attempts: attempts, Backoff: backoff, Sleep: sleepCtx}
}

// Do runs fn until it returns nil or attempts are exhausted, waiting
// Backoff(attempt) between failed attempts. It returns the last error
// from fn, or the context error if canceled while waiting.
func (p *Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}
		if p.Backoff != nil {
			if serr := p.Sleep(ctx, p.Backoff(attempt)); serr != nil {
				return serr
			}
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
