package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/okian/evalharvest/internal/domain/model"
)

// Writer encodes records with a header written before the first row.
type Writer struct {
	csv         *csv.Writer
	extra       []string
	wroteHeader bool
}

// NewWriter writes to w. extra names additional trailing columns whose
// values are passed to WriteWith.
func NewWriter(w io.Writer, extra ...string) *Writer {
	return &Writer{csv: csv.NewWriter(w), extra: extra}
}

// Write appends one record.
func (w *Writer) Write(rec *model.EvaluationRecord) error {
	return w.WriteWith(rec)
}

// WriteWith appends one record followed by values for the extra columns.
func (w *Writer) WriteWith(rec *model.EvaluationRecord, extra ...string) error {
	if len(extra) != len(w.extra) {
		return fmt.Errorf("got %d extra values, want %d", len(extra), len(w.extra))
	}
	if !w.wroteHeader {
		if err := w.csv.Write(append(append([]string{}, Header...), w.extra...)); err != nil {
			return err
		}
		w.wroteHeader = true
	}
	return w.csv.Write(append(Encode(rec), extra...))
}

// Flush pushes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
