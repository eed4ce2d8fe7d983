package apierr

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds retry parameters for exponential backoff.
//
// Invalid values are normalized before use:
//   - MaxRetries < 0 becomes 0 (single attempt)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay <= 0 becomes BaseDelay
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (c *RetryConfig) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

// RetryWithBackoff runs fn up to 1+MaxRetries times, backing off
// exponentially between attempts, and retrying only while shouldRetry
// accepts the error. It reports how many attempts actually ran so
// callers can account per-call usage without counting inside fn.
//
// A non-retryable error and a canceled context both end the loop
// immediately; exhausting the budget wraps the last error so sentinel
// matching with errors.Is still works.
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, int, error) {
	cfg.normalize()

	var zero T
	var lastErr error
	wait := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, wait); err != nil {
				return zero, attempt - 1, err
			}
			wait = min(wait*2, cfg.MaxDelay)
		}

		result, err := fn()
		if err == nil {
			return result, attempt, nil
		}

		lastErr = err
		if !shouldRetry(lastErr) {
			return zero, attempt, lastErr
		}
	}

	return zero, cfg.MaxRetries + 1,
		fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
