// Package config defines harvester configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config with defaults; Load layers file and env on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
)

// Completion accounting styles for the worker pool.
const (
	CompletionCount    = "count"
	CompletionSentinel = "sentinel"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// WorkerCount sets the number of concurrent harvest workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the task channel feeding the workers.
	QueueSize int `koanf:"queue_size"`

	// Completion selects count- or sentinel-based result accounting.
	Completion string `koanf:"completion"`

	// BackoffInitialMS is the first retry delay of the fetcher.
	BackoffInitialMS int `koanf:"backoff_initial_ms"`

	// BackoffJitter is the symmetric jitter fraction applied to each delay.
	BackoffJitter float64 `koanf:"backoff_jitter"`

	// MaxRetries caps the number of attempts per remote read.
	MaxRetries int `koanf:"max_retries"`

	// RateLimit caps hub requests per second across all workers; 0 disables it.
	RateLimit float64 `koanf:"rate_limit"`

	// ChunkSize is the sink flush threshold in records.
	ChunkSize int `koanf:"chunk_size"`

	// Output is the sink destination: a directory, "-" for stdout,
	// s3://bucket/prefix or postgres://... for remote stores.
	Output string `koanf:"output"`

	// Corpus is the directory of previously persisted batches used to build
	// the freshness index. Empty disables the freshness merge.
	Corpus string `koanf:"corpus"`

	// HubEndpoint is the base URL of the dataset host.
	HubEndpoint string `koanf:"hub_endpoint"`

	// RowsEndpoint is the base URL of the dataset rows service.
	RowsEndpoint string `koanf:"rows_endpoint"`

	// Author filters catalog listings by owner.
	Author string `koanf:"author"`

	// Search filters catalog listings by name fragment.
	Search string `koanf:"search"`

	// Evaluation is the default sub-dataset selector for bare source ids.
	Evaluation string `koanf:"evaluation"`

	// Flagged is a path or URL of the flagged author/model list.
	Flagged string `koanf:"flagged"`

	// FlaggedVariable names the dictionary holding flagged models.
	FlaggedVariable string `koanf:"flagged_variable"`

	// ObjectStoreEndpoint is the S3-compatible host used for s3:// outputs.
	ObjectStoreEndpoint string `koanf:"object_store_endpoint"`

	// ObjectStoreSecure toggles TLS for the object store.
	ObjectStoreSecure bool `koanf:"object_store_secure"`

	// MetricsAddr exposes /metrics, /healthz and /stats when non-empty.
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           1024,
		Completion:          CompletionSentinel,
		BackoffInitialMS:    15_000,
		BackoffJitter:       0.1,
		MaxRetries:          5,
		RateLimit:           0,
		ChunkSize:           100_000,
		Output:              "-",
		HubEndpoint:         "https://huggingface.co",
		RowsEndpoint:        "https://datasets-server.huggingface.co",
		Author:              "open-llm-leaderboard",
		Search:              "details_",
		FlaggedVariable:     "FLAGGED",
		ObjectStoreEndpoint: "s3.amazonaws.com",
		ObjectStoreSecure:   true,
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be >= 1", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be >= 1", ErrInvalidConfig)
	case c.ChunkSize < 1:
		return fmt.Errorf("%w: chunk_size must be >= 1", ErrInvalidConfig)
	case c.MaxRetries < 1:
		return fmt.Errorf("%w: max_retries must be >= 1", ErrInvalidConfig)
	case c.BackoffInitialMS < 0:
		return fmt.Errorf("%w: backoff_initial_ms must not be negative", ErrInvalidConfig)
	case c.BackoffJitter < 0 || c.BackoffJitter >= 1:
		return fmt.Errorf("%w: backoff_jitter must be in [0, 1)", ErrInvalidConfig)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	case c.Completion != CompletionCount && c.Completion != CompletionSentinel:
		return fmt.Errorf("%w: completion must be %q or %q", ErrInvalidConfig, CompletionCount, CompletionSentinel)
	case c.Output == "":
		return fmt.Errorf("%w: output must not be empty", ErrInvalidConfig)
	case c.HubEndpoint == "" || c.RowsEndpoint == "":
		return fmt.Errorf("%w: hub_endpoint and rows_endpoint must not be empty", ErrInvalidConfig)
	}
	return nil
}
