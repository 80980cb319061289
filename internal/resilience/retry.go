package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how an operation is retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Permanent reports errors that must not be retried. Caller
	// cancellation is always permanent.
	Permanent func(error) bool
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Retry runs op until it succeeds, returns a permanent error, the context
// ends, or MaxAttempts is reached. It returns the result, the number of
// attempts made and the last error.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, int, error) {
	attempts := 0
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}

	wrapped := func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if isPermanent(ctx, p, err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(maxAttempts)), //nolint:gosec // bounded above
		backoff.WithMaxElapsedTime(0),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			p.OnRetry(attempts, err, wait)
		}))
	}

	v, err := backoff.Retry(ctx, wrapped, opts...)
	return v, attempts, err
}

func isPermanent(ctx context.Context, p RetryPolicy, err error) bool {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return true
	}
	return p.Permanent != nil && p.Permanent(err)
}
