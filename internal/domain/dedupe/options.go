package dedupe

import (
	"runtime"

	"github.com/okian/evalharvest/pkg/logger"
)

// Option configures index construction and merging.
type Option func(*options)

type options struct {
	logger  logger.Logger
	workers int
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:  logger.Nop(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWorkers bounds the number of corpus files read concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}
