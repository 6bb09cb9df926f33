package apperr

import (
	"context"
	"time"
)

// Retry invokes op, retrying up to maxRetries additional times with
// exponential backoff (baseDelay * 2^(attempt-1)) between attempts. The
// first successful result is returned; after exhausting all attempts the
// last failure is returned. A running attempt is never interrupted, but
// the backoff wait aborts when ctx is done.
func Retry[T any](ctx context.Context, op func() (T, error), maxRetries int, baseDelay time.Duration) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}

// Safe invokes op; on failure the error is classified, handled (notified
// and logged), and fallback is returned instead of propagating.
func Safe[T any](c *Classifier, op func() (T, error), fallback T, ctx map[string]any) T {
	v, err := op()
	if err == nil {
		return v
	}
	c.Handle(c.FromException(err, ctx))
	return fallback
}
