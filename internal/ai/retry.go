package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// retryableError marks a transient failure: 429, 5xx, or transport errors.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryableError(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// newLimiter builds a token bucket allowing perMinute requests per minute.
func newLimiter(perMinute float64) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}
	return rate.NewLimiter(rate.Limit(perMinute/60.0), defaultBurst)
}

// caller runs rate-limited requests with exponential backoff between
// retryable failures.
type caller struct {
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

func newCaller(cfg Config) caller {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return caller{
		limiter:     newLimiter(cfg.RatePerMinute),
		maxRetries:  maxRetries,
		baseBackoff: defaultBaseBackoff,
	}
}

func (c caller) do(ctx context.Context, fn func(context.Context) (Verdict, error)) (Verdict, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Verdict{}, fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Verdict{}, ctx.Err()
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return Verdict{}, err
		}
	}
	return Verdict{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}
