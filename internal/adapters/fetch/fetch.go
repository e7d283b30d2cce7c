// Package fetch wraps remote reads with bounded exponential backoff.
//
// Only errors classified as transient are retried; not-found, permission
// and malformed-payload errors return at once without consuming further
// attempts. When attempts run out the last cause is wrapped in
// errkind.ErrUnavailable.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
)

// Defaults mirror the hub's tolerance for bursts of requests.
const (
	defaultInitialDelay = 15 * time.Second
	defaultJitter       = 0.1
	defaultMaxAttempts  = 5
)

// Fetcher runs operations under a retry policy. It holds no per-call state
// and is safe for concurrent use.
type Fetcher struct {
	initial     time.Duration
	jitter      float64
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	rand        func() float64
	logger      logger.Logger
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		initial:     defaultInitialDelay,
		jitter:      defaultJitter,
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepCtx,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxAttempts returns the attempt cap.
func (f *Fetcher) MaxAttempts() int {
	return f.maxAttempts
}

// Do calls fn until it succeeds, fails permanently, or attempts run out.
// op names the operation in logs and metrics, target the remote object.
func Do[T any](ctx context.Context, f *Fetcher, op, target string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	backoff := NewBackoff(f.initial, f.jitter, f.rand)

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		metrics.RecordFetchAttempt(op)
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !errkind.Retryable(err) {
			return zero, &AttemptsError{Attempts: attempt, Err: err}
		}
		lastErr = err
		if attempt == f.maxAttempts {
			break
		}

		delay := backoff.Next()
		f.logger.Warn(ctx, "transient fetch error, backing off",
			logger.String("op", op),
			logger.String("target", target),
			logger.Int("attempt", attempt),
			logger.Duration("backoff", delay),
			logger.Error(err),
		)
		metrics.RecordFetchRetry(op, delay.Seconds())
		if err := f.sleep(ctx, delay); err != nil {
			return zero, &AttemptsError{Attempts: attempt, Err: fmt.Errorf("%s %s: %w", op, target, err)}
		}
	}

	return zero, &AttemptsError{
		Attempts: f.maxAttempts,
		Err: errkind.Wrap(errkind.ErrUnavailable,
			fmt.Sprintf("%s %s after %d attempts", op, target, f.maxAttempts), lastErr),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
