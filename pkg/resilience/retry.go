package resilience

import (
	"context"
	"time"
)

// RetryPolicy configures bounded exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Backoff returns the delay before the given attempt (1-based):
// base * 2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt-1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Retry runs op up to MaxAttempts times, sleeping Backoff between attempts.
// Only errors for which recoverable returns true are retried; the last error
// is returned once attempts are exhausted. Context cancellation aborts the
// wait immediately.
func Retry(ctx context.Context, policy RetryPolicy, recoverable func(error) bool, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(policy.Backoff(attempt - 1)):
			}
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if recoverable == nil || !recoverable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
