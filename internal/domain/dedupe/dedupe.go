// Package dedupe implements the freshness merge: a submission's records pass
// only when they are newer than anything the persisted corpus already holds.
package dedupe

import (
	"context"
	"time"

	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
)

// Index maps each submission to the most recent date observed in the corpus.
// It is built by a single goroutine and only read afterwards, so concurrent
// lookups are safe once construction has finished.
type Index struct {
	dates map[model.SubmissionKey]time.Time
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{dates: make(map[model.SubmissionKey]time.Time)}
}

// Observe records date for key if it is strictly later than the held date.
// On an exact tie the first observation is kept. Returns true if the index
// changed.
func (ix *Index) Observe(key model.SubmissionKey, date time.Time) bool {
	if held, ok := ix.dates[key]; ok && !date.After(held) {
		return false
	}
	ix.dates[key] = date
	return true
}

// Latest returns the held date for key.
func (ix *Index) Latest(key model.SubmissionKey) (time.Time, bool) {
	d, ok := ix.dates[key]
	return d, ok
}

// Fresh reports whether a record of key dated date should pass: the key is
// absent or its held date is strictly earlier.
func (ix *Index) Fresh(key model.SubmissionKey, date time.Time) bool {
	held, ok := ix.dates[key]
	return !ok || date.After(held)
}

// Len returns the number of submissions held.
func (ix *Index) Len() int {
	return len(ix.dates)
}

// Merger filters incoming records against a finished Index.
type Merger struct {
	index  *Index
	logger logger.Logger
}

// NewMerger creates a Merger over index. A nil index lets everything pass.
func NewMerger(index *Index, opts ...Option) *Merger {
	o := newOptions(opts)
	if index == nil {
		index = NewIndex()
	}
	return &Merger{index: index, logger: o.logger}
}

// Index returns the index the merger reads.
func (m *Merger) Index() *Index {
	return m.index
}

// Filter returns the records that are fresher than the index, in input order.
// It holds no state between calls.
func (m *Merger) Filter(ctx context.Context, recs []model.EvaluationRecord) []model.EvaluationRecord {
	out := make([]model.EvaluationRecord, 0, len(recs))
	stale := 0
	for i := range recs {
		if m.index.Fresh(recs[i].Key(), recs[i].Date) {
			out = append(out, recs[i])
			continue
		}
		stale++
		metrics.RecordRecordStale()
	}
	if stale > 0 {
		m.logger.Debug(ctx, "dropped stale records",
			logger.Int("stale", stale),
			logger.Int("kept", len(out)),
		)
	}
	return out
}

// Pass reports whether a single record is fresh.
func (m *Merger) Pass(rec *model.EvaluationRecord) bool {
	if m.index.Fresh(rec.Key(), rec.Date) {
		return true
	}
	metrics.RecordRecordStale()
	return false
}
