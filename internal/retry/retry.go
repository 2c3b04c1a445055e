// Package retry wraps calls to external services with a per-attempt timeout and
// bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Policy bounds one external call.
type Policy struct {
	// Timeout applies to each attempt; zero means no per-attempt deadline.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialInterval is the first backoff wait.
	InitialInterval time.Duration
	// MaxElapsed caps the total time spent retrying; zero means no cap.
	MaxElapsed time.Duration
}

// DefaultPolicy is a small retry budget suitable for interactive calls.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		InitialInterval: 250 * time.Millisecond,
		MaxElapsed:      time.Minute,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn until it succeeds, returns a Permanent error, the retry budget is spent,
// or ctx is done. Each attempt gets its own context bounded by p.Timeout.
func Do[T any](ctx context.Context, p Policy, logger *zap.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	eb.MaxElapsedTime = p.MaxElapsed
	var b backoff.BackOff = eb
	if p.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxRetries))
	}
	b = backoff.WithContext(b, ctx)

	attempt := 0
	var result T
	err := backoff.Retry(func() error {
		attempt++
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}
		v, err := fn(attemptCtx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			logger.Debug("external call failed", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		result = v
		return nil
	}, b)
	if err != nil {
		var zero T
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return zero, perm.Err
		}
		return zero, err
	}
	return result, nil
}
