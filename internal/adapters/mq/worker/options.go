// Package worker fans queued work items out to a fixed pool of goroutines
// and fans their results back over one channel.
package worker

import (
	"github.com/okian/evalharvest/pkg/logger"
)

// Completion selects how the consumer knows the pool is finished.
type Completion string

// Completion accounting styles.
const (
	// Count: the consumer reads exactly as many results as items submitted.
	Count Completion = "count"
	// Sentinel: every worker emits a Done marker once its queue drains.
	Sentinel Completion = "sentinel"
)

// Option applies a configuration option to a Pool.
type Option func(*settings)

type settings struct {
	name       string
	completion Completion
	logger     logger.Logger
}

// WithName sets the pool name used for worker loggers.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithCompletion selects count or sentinel accounting.
func WithCompletion(c Completion) Option {
	return func(s *settings) {
		if c == Count || c == Sentinel {
			s.completion = c
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
