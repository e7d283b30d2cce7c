package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/evalharvest/internal/config"
	"github.com/okian/evalharvest/pkg/logger"
)

// Global flag names. Each one overrides the config field of the same name
// only when set on the command line.
const (
	flagLogLevel            = "log-level"
	flagWorkers             = "workers"
	flagQueueSize           = "queue-size"
	flagCompletion          = "completion"
	flagBackoff             = "backoff"
	flagJitter              = "jitter"
	flagMaxRetries          = "max-retries"
	flagRateLimit           = "rate-limit"
	flagChunkSize           = "chunk-size"
	flagOutput              = "output"
	flagCorpus              = "corpus"
	flagAuthor              = "author"
	flagSearch              = "search"
	flagEvaluation          = "evaluation"
	flagFlagged             = "flagged"
	flagFlaggedVariable     = "flagged-variable"
	flagHubEndpoint         = "hub-endpoint"
	flagRowsEndpoint        = "rows-endpoint"
	flagObjectStoreEndpoint = "object-store-endpoint"
	flagObjectStoreInsecure = "object-store-insecure"
	flagMetricsAddr         = "metrics-addr"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "log level (debug, info, warn, error)",
		},
		&cli.IntFlag{
			Name:  flagWorkers,
			Usage: "number of concurrent workers",
		},
		&cli.IntFlag{
			Name:  flagQueueSize,
			Usage: "capacity of the task queue",
		},
		&cli.StringFlag{
			Name:  flagCompletion,
			Usage: "result accounting: count or sentinel",
		},
		&cli.DurationFlag{
			Name:  flagBackoff,
			Usage: "first retry delay of remote reads",
		},
		&cli.FloatFlag{
			Name:  flagJitter,
			Usage: "symmetric jitter fraction applied to each retry delay",
		},
		&cli.IntFlag{
			Name:  flagMaxRetries,
			Usage: "attempts per remote read",
		},
		&cli.FloatFlag{
			Name:  flagRateLimit,
			Usage: "hub requests per second across all workers (0 disables)",
		},
		&cli.IntFlag{
			Name:  flagChunkSize,
			Usage: "records buffered before a sink flush",
		},
		&cli.StringFlag{
			Name:    flagOutput,
			Aliases: []string{"o"},
			Usage:   "destination: directory, - for stdout, s3://bucket/prefix or postgres://...",
		},
		&cli.StringFlag{
			Name:  flagCorpus,
			Usage: "directory of persisted batches used for the freshness merge",
		},
		&cli.StringFlag{
			Name:  flagAuthor,
			Usage: "catalog owner filter",
		},
		&cli.StringFlag{
			Name:  flagSearch,
			Usage: "catalog name filter",
		},
		&cli.StringFlag{
			Name:  flagEvaluation,
			Usage: "evaluation selector applied to bare source ids",
		},
		&cli.StringFlag{
			Name:  flagFlagged,
			Usage: "path or URL of the flagged author/model list",
		},
		&cli.StringFlag{
			Name:  flagFlaggedVariable,
			Usage: "dictionary name holding flagged models",
		},
		&cli.StringFlag{
			Name:  flagHubEndpoint,
			Usage: "base URL of the dataset host",
		},
		&cli.StringFlag{
			Name:  flagRowsEndpoint,
			Usage: "base URL of the dataset rows service",
		},
		&cli.StringFlag{
			Name:  flagObjectStoreEndpoint,
			Usage: "S3-compatible host for s3:// outputs",
		},
		&cli.BoolFlag{
			Name:  flagObjectStoreInsecure,
			Usage: "talk to the object store over plain HTTP",
		},
		&cli.StringFlag{
			Name:  flagMetricsAddr,
			Usage: "address serving /metrics, /healthz and /stats while the command runs",
		},
	}
}

// loadConfig layers command-line overrides on top of config.Load and applies
// the resulting log level.
func loadConfig(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, cmd *cli.Command) {
	setString := func(flag string, dst *string) {
		if cmd.IsSet(flag) {
			*dst = cmd.String(flag)
		}
	}
	setInt := func(flag string, dst *int) {
		if cmd.IsSet(flag) {
			*dst = cmd.Int(flag)
		}
	}
	setFloat := func(flag string, dst *float64) {
		if cmd.IsSet(flag) {
			*dst = cmd.Float(flag)
		}
	}

	setString(flagLogLevel, &cfg.LogLevel)
	setInt(flagWorkers, &cfg.WorkerCount)
	setInt(flagQueueSize, &cfg.QueueSize)
	setString(flagCompletion, &cfg.Completion)
	setFloat(flagJitter, &cfg.BackoffJitter)
	setInt(flagMaxRetries, &cfg.MaxRetries)
	setFloat(flagRateLimit, &cfg.RateLimit)
	setInt(flagChunkSize, &cfg.ChunkSize)
	setString(flagOutput, &cfg.Output)
	setString(flagCorpus, &cfg.Corpus)
	setString(flagAuthor, &cfg.Author)
	setString(flagSearch, &cfg.Search)
	setString(flagEvaluation, &cfg.Evaluation)
	setString(flagFlagged, &cfg.Flagged)
	setString(flagFlaggedVariable, &cfg.FlaggedVariable)
	setString(flagHubEndpoint, &cfg.HubEndpoint)
	setString(flagRowsEndpoint, &cfg.RowsEndpoint)
	setString(flagObjectStoreEndpoint, &cfg.ObjectStoreEndpoint)
	setString(flagMetricsAddr, &cfg.MetricsAddr)

	if cmd.IsSet(flagBackoff) {
		cfg.BackoffInitialMS = int(cmd.Duration(flagBackoff) / time.Millisecond)
	}
	if cmd.IsSet(flagObjectStoreInsecure) {
		cfg.ObjectStoreSecure = !cmd.Bool(flagObjectStoreInsecure)
	}
}
