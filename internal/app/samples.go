package service

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/okian/evalharvest/internal/adapters/hub"
	"github.com/okian/evalharvest/internal/adapters/mq/worker"
	"github.com/okian/evalharvest/pkg/logger"
)

const samplesPrefix = "samples_"

// Sample is the earliest per-task samples file of one dataset.
type Sample struct {
	Dataset string
	Path    string
	Date    time.Time
}

// sampleTask names the task a samples file belongs to: its stem without the
// trailing timestamp component.
func sampleTask(name string) (string, bool) {
	base := path.Base(name)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if !strings.HasPrefix(stem, samplesPrefix) {
		return "", false
	}
	i := strings.LastIndex(stem, "_")
	return stem[:i], true
}

// Samples walks the top-level directories of dataset and keeps, per task,
// the samples file with the earliest last-commit date.
func (s *Service) Samples(ctx context.Context, dataset string) ([]Sample, error) {
	top, err := s.hub.ListTree(ctx, dataset, "")
	if err != nil {
		return nil, err
	}

	earliest := make(map[string]Sample)
	for _, dir := range top {
		if dir.Type != hub.TypeDirectory {
			continue
		}
		entries, err := s.hub.ListTree(ctx, dataset, dir.Name)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", dataset, dir.Name, err)
		}
		for _, e := range entries {
			if e.Type != hub.TypeFile {
				continue
			}
			task, ok := sampleTask(e.Name)
			if !ok {
				continue
			}
			cur, seen := earliest[task]
			if !seen || e.LastModified.Before(cur.Date) {
				earliest[task] = Sample{Dataset: dataset, Path: e.Name, Date: e.LastModified}
			}
		}
	}

	out := make([]Sample, 0, len(earliest))
	for _, smp := range earliest {
		out = append(out, smp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ListSamples runs Samples for every dataset on the worker pool and hands
// each dataset's result to emit from a single goroutine.
func (s *Service) ListSamples(ctx context.Context, datasets []string, emit func([]Sample) error) (Report, error) {
	report := Report{Submitted: len(datasets)}
	err := fanOut(ctx, s, datasets, worker.Shared[string, []Sample](s.Samples), func(r worker.Result[string, []Sample]) error {
		if r.Err != nil {
			s.skip(ctx, &report, r.Item, r.Err)
			return nil
		}
		report.Processed++
		s.processed.Add(1)
		report.Records += len(r.Value)
		s.logger.Debug(ctx, "samples listed", logger.String("dataset", r.Item), logger.Int("files", len(r.Value)))
		return emit(r.Value)
	})
	return report, err
}
