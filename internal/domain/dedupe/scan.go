package dedupe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
)

// FirstRecordFunc reads the first record of one persisted batch. Every
// record of a batch shares its submission and date, so one is enough.
// It returns io.EOF for a batch without records.
type FirstRecordFunc func(ctx context.Context, path string) (model.EvaluationRecord, error)

type entry struct {
	key  model.SubmissionKey
	date time.Time
	ok   bool
}

// BuildIndex reads the first record of every path concurrently and folds
// the results, in path order, into a new Index. Empty and malformed batches
// are logged and skipped; any other read error aborts the build.
func BuildIndex(ctx context.Context, paths []string, read FirstRecordFunc, opts ...Option) (*Index, error) {
	o := newOptions(opts)
	entries := make([]entry, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, p := range paths {
		g.Go(func() error {
			rec, err := read(gctx, p)
			switch {
			case err == nil:
				entries[i] = entry{key: rec.Key(), date: rec.Date, ok: true}
				return nil
			case errors.Is(err, io.EOF):
				o.logger.Debug(gctx, "empty corpus batch", logger.String("path", p))
				return nil
			case errors.Is(err, errkind.ErrMalformed):
				o.logger.Warn(gctx, "skipping malformed corpus batch",
					logger.String("path", p),
					logger.Error(err),
				)
				return nil
			default:
				return fmt.Errorf("read corpus batch %s: %w", p, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := NewIndex()
	for _, e := range entries {
		if e.ok {
			ix.Observe(e.key, e.date)
		}
	}
	metrics.UpdateIndexEntries(ix.Len())
	o.logger.Info(ctx, "freshness index built",
		logger.Int("files", len(paths)),
		logger.Int("submissions", ix.Len()),
	)
	return ix, nil
}
