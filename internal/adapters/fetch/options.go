package fetch

import (
	"context"
	"time"

	"github.com/okian/evalharvest/pkg/logger"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithInitialDelay sets the first backoff delay.
func WithInitialDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.initial = d
		}
	}
}

// WithJitter sets the symmetric jitter fraction. Values outside [0, 1) are
// ignored.
func WithJitter(j float64) Option {
	return func(f *Fetcher) {
		if j >= 0 && j < 1 {
			f.jitter = j
		}
	}
}

// WithMaxAttempts caps the number of attempts, the first one included.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithSleep replaces the context-aware sleep, mostly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithRand replaces the jitter source, mostly for tests.
func WithRand(rnd func() float64) Option {
	return func(f *Fetcher) {
		f.rand = rnd
	}
}

// WithLogger sets the logger used for retry messages.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}
