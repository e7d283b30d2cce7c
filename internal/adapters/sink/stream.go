package sink

import (
	"context"
	"io"

	"github.com/okian/evalharvest/internal/adapters/tabular"
	"github.com/okian/evalharvest/internal/domain/model"
)

// BackendStream names the delimited stream backend.
const BackendStream = "stream"

// Stream writes records as one CSV table to w, header first.
type Stream struct {
	w *tabular.Writer
}

// NewStream writes to w. The stream is not closed by the sink.
func NewStream(w io.Writer) *Stream {
	return &Stream{w: tabular.NewWriter(w)}
}

// Name implements Backend.
func (s *Stream) Name() string { return BackendStream }

// Flush implements Backend.
func (s *Stream) Flush(_ context.Context, recs []model.EvaluationRecord) error {
	for i := range recs {
		if err := s.w.Write(&recs[i]); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

// Close implements Backend.
func (s *Stream) Close(context.Context) error { return nil }
