// Package retry provides a generic retry wrapper for fallible external
// calls. Only transient, rate-limit-classified failures are retried, with
// exponential backoff between attempts; every other failure is returned to
// the caller immediately.
//
// Callers are responsible for ensuring retried calls are safe to repeat. The
// orchestrator only wraps the reasoning-engine call, which is read/propose
// only until the turn is finalized.
package retry

import (
	"context"
	"time"

	"github.com/parleyhq/parley/internal/errors"
)

// DefaultBaseDelay is the initial backoff delay. Attempt n sleeps
// base * 2^n before retrying.
const DefaultBaseDelay = 2 * time.Second

// Options configures a retry wrapper.
type Options struct {
	// MaxRetries is the number of additional attempts after the first
	// failure. Zero means no retries.
	MaxRetries int
	// BaseDelay is the backoff base; DefaultBaseDelay when zero.
	BaseDelay time.Duration
	// Sleep replaces the real clock in tests. Nil uses a context-aware
	// time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) baseDelay() time.Duration {
	if o.BaseDelay <= 0 {
		return DefaultBaseDelay
	}
	return o.BaseDelay
}

func (o Options) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
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

// Do invokes fn, retrying on transient rate-limit failures with exponential
// backoff. Non-retryable errors are returned immediately; once retries are
// exhausted the last error is returned. A cancelled context aborts the
// backoff wait and returns the context error.
func Do(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for calls that produce a value.
func DoValue[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.IsRetryable(err) {
			return zero, err
		}

		lastErr = err
		if attempt >= opts.MaxRetries {
			break
		}

		delay := opts.baseDelay() * (1 << attempt)
		if serr := opts.sleep(ctx, delay); serr != nil {
			return zero, serr
		}
	}
	return zero, lastErr
}
