// Package service composes the harvest pipeline: it fans sources out to a
// worker pool that retrieves, extracts and merges each one, and funnels the
// surviving records to a single sink writer.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/okian/evalharvest/internal/adapters/fetch"
	"github.com/okian/evalharvest/internal/adapters/hub"
	"github.com/okian/evalharvest/internal/adapters/mq/queue"
	"github.com/okian/evalharvest/internal/adapters/mq/worker"
	"github.com/okian/evalharvest/internal/domain/dedupe"
	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/extract"
	"github.com/okian/evalharvest/internal/domain/flagged"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/internal/domain/snapshot"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
)

const defaultQueueSize = 1024

// Hub is the remote dataset host. *hub.Client implements it.
type Hub interface {
	ListDatasets(ctx context.Context, author, search string) ([]string, error)
	ListTree(ctx context.Context, dataset, dir string) ([]hub.Entry, error)
	Splits(ctx context.Context, dataset, config string) ([]string, error)
	Rows(ctx context.Context, dataset, config, split string) ([]hub.Row, error)
	Get(ctx context.Context, target string) ([]byte, error)
}

// Sink receives surviving records from the single collecting goroutine.
// *sink.Chunked implements it.
type Sink interface {
	WriteBatch(ctx context.Context, recs []model.EvaluationRecord) (bool, error)
}

// Failure describes one skipped work item.
type Failure struct {
	Item     string
	Class    string
	Attempts int
	Err      error
}

// Report summarizes one run.
type Report struct {
	Submitted int
	Processed int
	Skipped   int
	Flagged   int
	Records   int
	Stale     int
	Flushes   int
	Failures  []Failure
}

// OK reports whether every item was processed.
func (r *Report) OK() bool {
	return r.Skipped == 0
}

// Service runs harvest jobs against a Hub.
type Service struct {
	hub Hub

	workerCount int
	queueSize   int
	completion  worker.Completion

	flagged *flagged.Set
	merger  *dedupe.Merger

	processed atomic.Int64
	skipped   atomic.Int64
	written   atomic.Int64
	running   atomic.Bool

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(h Hub, opts ...Option) *Service {
	s := &Service{
		hub:         h,
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		completion:  worker.Sentinel,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// itemResult is what one worker hands back for one source.
type itemResult struct {
	snapshot string
	records  []model.EvaluationRecord
	flagged  bool
	stale    int
}

// Harvest processes sources concurrently and writes surviving records to
// out. A failing item is logged and counted in the report; a sink error
// stops the run and is returned.
func (s *Service) Harvest(ctx context.Context, sources []model.Source, out Sink) (Report, error) {
	report := Report{Submitted: len(sources)}
	var factory worker.Factory[model.Source, itemResult] = func(int) worker.ProcessFunc[model.Source, itemResult] {
		ex := extract.New(extract.WithLogger(s.logger.Named("extract")))
		return func(ctx context.Context, src model.Source) (itemResult, error) {
			return s.process(ctx, ex, src)
		}
	}

	s.logger.Info(ctx, "harvest starting",
		logger.Int("sources", len(sources)),
		logger.Int("workers", s.workerCount),
		logger.String("completion", string(s.completion)),
	)
	start := time.Now()
	err := fanOut(ctx, s, sources, factory, func(r worker.Result[model.Source, itemResult]) error {
		if r.Err != nil {
			s.skip(ctx, &report, r.Item.String(), r.Err)
			return nil
		}
		report.Processed++
		s.processed.Add(1)
		metrics.RecordItemProcessed(r.Elapsed.Seconds())
		if r.Value.flagged {
			report.Flagged++
			return nil
		}
		report.Stale += r.Value.stale

		flushed, err := out.WriteBatch(ctx, r.Value.records)
		if err != nil {
			return err
		}
		if flushed {
			report.Flushes++
		}
		report.Records += len(r.Value.records)
		s.written.Add(int64(len(r.Value.records)))
		s.logger.Debug(ctx, "source harvested",
			logger.String("source", r.Item.String()),
			logger.String("snapshot", r.Value.snapshot),
			logger.Int("records", len(r.Value.records)),
			logger.Int("stale", r.Value.stale),
		)
		return nil
	})

	s.logger.Info(ctx, "harvest finished",
		logger.Int("processed", report.Processed),
		logger.Int("skipped", report.Skipped),
		logger.Int("flagged", report.Flagged),
		logger.Int("records", report.Records),
		logger.Int("stale", report.Stale),
		logger.Duration("took", time.Since(start)),
	)
	return report, err
}

// process runs retrieval, extraction and merge for one source, in that order.
func (s *Service) process(ctx context.Context, ex *extract.Extractor, src model.Source) (itemResult, error) {
	key, err := src.Submission()
	if err != nil {
		return itemResult{}, err
	}
	if s.flagged.Contains(key.Author, key.Model) {
		metrics.RecordItemFlagged()
		s.logger.Info(ctx, "flagged model skipped", logger.String("source", src.String()))
		return itemResult{flagged: true}, nil
	}

	labels, err := s.hub.Splits(ctx, src.URI, src.Evaluation)
	if err != nil {
		return itemResult{}, err
	}
	snap, err := snapshot.Select(labels)
	if err != nil {
		return itemResult{}, fmt.Errorf("%s: %w", src, err)
	}
	rows, err := s.hub.Rows(ctx, src.URI, src.Evaluation, snap.Label)
	if err != nil {
		return itemResult{}, err
	}

	res := ex.Extract(ctx, rows)
	recs := make([]model.EvaluationRecord, len(res.Triples))
	for i, t := range res.Triples {
		recs[i] = model.EvaluationRecord{
			Date:      snap.Time,
			Author:    key.Author,
			Model:     key.Model,
			Benchmark: key.Benchmark,
			Subject:   key.Subject,
			Prompt:    t.Prompt,
			Metric:    t.Metric,
			Value:     t.Value,
		}
	}

	out := itemResult{snapshot: snap.Label, records: recs}
	if s.merger != nil {
		out.records = s.merger.Filter(ctx, recs)
		out.stale = len(recs) - len(out.records)
	}
	return out, nil
}

func (s *Service) skip(ctx context.Context, report *Report, item string, err error) {
	f := Failure{Item: item, Class: errkind.Classify(err), Attempts: fetch.Attempts(err), Err: err}
	report.Skipped++
	report.Failures = append(report.Failures, f)
	s.skipped.Add(1)
	metrics.RecordItemSkipped(f.Class)
	s.logger.Error(ctx, "item skipped",
		logger.String("source", f.Item),
		logger.Int("attempt", f.Attempts),
		logger.String("class", f.Class),
		logger.Error(err),
	)
}

// fanOut feeds items through a fresh queue and worker pool and calls handle
// for every result from the calling goroutine. An error from handle cancels
// the remaining work.
func fanOut[T, R any](ctx context.Context, s *Service, items []T, factory worker.Factory[T, R], handle func(worker.Result[T, R]) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.running.Store(true)
	defer s.running.Store(false)

	q := queue.NewInMemoryQueue[T](queue.WithCapacity(s.queueSize))
	pool := worker.NewPool(s.workerCount, q, factory,
		worker.WithCompletion(s.completion),
		worker.WithName("harvest"),
		worker.WithLogger(s.logger),
	)
	results, err := pool.Start(ctx)
	if err != nil {
		return err
	}

	go func() {
		defer func() { _ = q.Close() }()
		for _, it := range items {
			if err := q.Put(ctx, it); err != nil {
				s.logger.Warn(ctx, "stopped submitting", logger.Error(err))
				return
			}
		}
	}()

	total := pool.Size()
	if s.completion == worker.Count {
		total = len(items)
	}
	err = worker.Collect(ctx, results, s.completion, total, handle)
	if err != nil {
		cancel()
	}
	if shutdownErr := pool.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	return map[string]any{
		"running":     s.running.Load(),
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"completion":  string(s.completion),
		"processed":   s.processed.Load(),
		"skipped":     s.skipped.Load(),
		"written":     s.written.Load(),
		"flagged":     s.flagged.Len(),
		"indexed":     s.indexed(),
	}
}

func (s *Service) indexed() int {
	if s.merger == nil {
		return 0
	}
	return s.merger.Index().Len()
}
