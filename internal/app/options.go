package service

import (
	"github.com/okian/evalharvest/internal/adapters/mq/worker"
	"github.com/okian/evalharvest/internal/domain/dedupe"
	"github.com/okian/evalharvest/internal/domain/flagged"
	"github.com/okian/evalharvest/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCompletion selects count or sentinel result accounting.
func WithCompletion(c worker.Completion) Option {
	return func(s *Service) {
		if c == worker.Count || c == worker.Sentinel {
			s.completion = c
		}
	}
}

// WithFlagged suppresses sources whose author/model pair is in set.
func WithFlagged(set *flagged.Set) Option {
	return func(s *Service) {
		s.flagged = set
	}
}

// WithMerger drops records that are not fresher than the corpus.
func WithMerger(m *dedupe.Merger) Option {
	return func(s *Service) {
		s.merger = m
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
