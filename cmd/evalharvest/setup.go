package main

import (
	"context"
	"io"
	"time"

	"github.com/okian/evalharvest/internal/adapters/fetch"
	"github.com/okian/evalharvest/internal/adapters/http/api"
	"github.com/okian/evalharvest/internal/adapters/hub"
	"github.com/okian/evalharvest/internal/adapters/mq/worker"
	"github.com/okian/evalharvest/internal/adapters/sink"
	"github.com/okian/evalharvest/internal/adapters/tabular"
	service "github.com/okian/evalharvest/internal/app"
	"github.com/okian/evalharvest/internal/config"
	"github.com/okian/evalharvest/internal/domain/dedupe"
	"github.com/okian/evalharvest/pkg/logger"
)

// newHub builds the dataset host client with the configured retry policy
// and process-wide rate limit.
func newHub(cfg *config.Config, log logger.Logger) *hub.Client {
	fetcher := fetch.New(
		fetch.WithInitialDelay(time.Duration(cfg.BackoffInitialMS)*time.Millisecond),
		fetch.WithJitter(cfg.BackoffJitter),
		fetch.WithMaxAttempts(cfg.MaxRetries),
		fetch.WithLogger(log.Named("fetch")),
	)
	return hub.New(
		hub.WithHubURL(cfg.HubEndpoint),
		hub.WithRowsURL(cfg.RowsEndpoint),
		hub.WithRateLimit(cfg.RateLimit),
		hub.WithFetcher(fetcher),
		hub.WithLogger(log.Named("hub")),
	)
}

// newService loads the flagged list and assembles the orchestrator. A nil
// merger disables the freshness merge.
func newService(ctx context.Context, cfg *config.Config, h service.Hub, merger *dedupe.Merger, log logger.Logger) (*service.Service, error) {
	set, err := service.LoadFlagged(ctx, h, cfg.Flagged, cfg.FlaggedVariable, log.Named("flagged"))
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithLogger(log.Named("harvest")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithCompletion(worker.Completion(cfg.Completion)),
		service.WithFlagged(set),
	}
	if merger != nil {
		opts = append(opts, service.WithMerger(merger))
	}
	return service.New(h, opts...), nil
}

// loadMerger indexes the corpus directory. An empty corpus setting yields
// a nil merger.
func loadMerger(ctx context.Context, cfg *config.Config, log logger.Logger) (*dedupe.Merger, error) {
	if cfg.Corpus == "" {
		return nil, nil
	}
	paths, err := tabular.ListCorpus(cfg.Corpus)
	if err != nil {
		return nil, err
	}

	log = log.Named("dedupe")
	index, err := dedupe.BuildIndex(ctx, paths, tabular.FirstRecord,
		dedupe.WithWorkers(cfg.WorkerCount),
		dedupe.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return dedupe.NewMerger(index, dedupe.WithLogger(log)), nil
}

// openSink opens the configured destination; "-" writes to stdout of cmd.
func openSink(ctx context.Context, cfg *config.Config, stdout io.Writer, log logger.Logger) (*sink.Chunked, error) {
	return sink.Open(ctx, cfg.Output,
		sink.WithChunkSize(cfg.ChunkSize),
		sink.WithLogger(log.Named("sink")),
		sink.WithStdout(stdout),
		sink.WithObjectStoreEndpoint(cfg.ObjectStoreEndpoint, cfg.ObjectStoreSecure),
	)
}

// serveOps runs the ops server for the lifetime of ctx when metrics_addr is
// set. The returned stop func cancels it and waits for shutdown.
func serveOps(ctx context.Context, cfg *config.Config, stats api.StatsProvider, log logger.Logger) (stop func()) {
	if cfg.MetricsAddr == "" {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := api.NewServer(stats, log.Named("ops")).Serve(ctx, cfg.MetricsAddr); err != nil {
			log.Error(ctx, "ops server failed", logger.String("addr", cfg.MetricsAddr), logger.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
