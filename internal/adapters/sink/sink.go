// Package sink buffers evaluation records and persists them in chunks
// through one of several backends chosen by the destination address.
//
// A sink is owned by a single writer. A failed flush poisons the sink: the
// error wraps errkind.ErrSinkFlush, is never retried here, and every later
// write returns it.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
)

const defaultChunkSize = 100_000

// Backend persists one batch. It must not retain recs after returning.
type Backend interface {
	Name() string
	Flush(ctx context.Context, recs []model.EvaluationRecord) error
	Close(ctx context.Context) error
}

// Chunked buffers records and flushes them to a Backend whenever the buffer
// reaches the chunk size.
type Chunked struct {
	backend   Backend
	chunkSize int
	buf       []model.EvaluationRecord
	err       error
	closed    bool
	logger    logger.Logger
}

// NewChunked wraps backend.
func NewChunked(backend Backend, opts ...Option) *Chunked {
	o := newOptions(opts)
	return &Chunked{
		backend:   backend,
		chunkSize: o.chunkSize,
		buf:       make([]model.EvaluationRecord, 0, min(o.chunkSize, 4096)),
		logger:    o.logger,
	}
}

// Backend returns the wrapped backend name.
func (s *Chunked) Backend() string {
	return s.backend.Name()
}

// Len returns the number of buffered records.
func (s *Chunked) Len() int {
	return len(s.buf)
}

// Write buffers rec. flushed is true exactly when this write filled the
// buffer to the chunk size and it was persisted.
func (s *Chunked) Write(ctx context.Context, rec model.EvaluationRecord) (bool, error) {
	if err := s.usable(); err != nil {
		return false, err
	}
	s.buf = append(s.buf, rec)
	metrics.UpdateBufferedRows(len(s.buf))
	if len(s.buf) < s.chunkSize {
		return false, nil
	}
	if err := s.flush(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// WriteBatch writes recs in order and reports whether any flush happened.
func (s *Chunked) WriteBatch(ctx context.Context, recs []model.EvaluationRecord) (bool, error) {
	var flushed bool
	for i := range recs {
		f, err := s.Write(ctx, recs[i])
		if err != nil {
			return flushed, err
		}
		flushed = flushed || f
	}
	return flushed, nil
}

// Close flushes any remainder once and closes the backend. After a failed
// flush the remainder is dropped and the first Close returns the flush
// error; later calls return nil.
func (s *Chunked) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.err != nil {
		if n := len(s.buf); n > 0 {
			s.logger.Warn(ctx, "dropping buffered rows after failed flush",
				logger.String("backend", s.backend.Name()),
				logger.Int("rows", n),
			)
		}
		return errors.Join(s.err, s.backend.Close(ctx))
	}

	var flushErr error
	if len(s.buf) > 0 {
		flushErr = s.flush(ctx)
	}
	return errors.Join(flushErr, s.backend.Close(ctx))
}

func (s *Chunked) usable() error {
	if s.err != nil {
		return s.err
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Chunked) flush(ctx context.Context) error {
	n := len(s.buf)
	start := time.Now()
	if err := s.backend.Flush(ctx, s.buf); err != nil {
		metrics.RecordFlushError(s.backend.Name())
		s.err = errkind.Wrap(errkind.ErrSinkFlush, s.backend.Name(), err)
		s.logger.Error(ctx, "flush failed",
			logger.String("backend", s.backend.Name()),
			logger.Int("rows", n),
			logger.Error(err),
		)
		return s.err
	}
	elapsed := time.Since(start)
	metrics.RecordFlush(s.backend.Name(), n, elapsed.Seconds())
	s.logger.Debug(ctx, "flushed",
		logger.String("backend", s.backend.Name()),
		logger.Int("rows", n),
		logger.Duration("took", elapsed),
	)
	clear(s.buf)
	s.buf = s.buf[:0]
	metrics.UpdateBufferedRows(0)
	return nil
}
