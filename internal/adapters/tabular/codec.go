// Package tabular encodes evaluation records as delimited rows and reads
// persisted batches back, plain or gzip-compressed.
package tabular

import (
	"fmt"
	"strconv"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/internal/domain/model"
)

// Column names of the record layout, in output order.
const (
	ColDate      = "date"
	ColAuthor    = "author"
	ColModel     = "model"
	ColBenchmark = "benchmark"
	ColSubject   = "subject"
	ColPrompt    = "prompt"
	ColMetric    = "metric"
	ColValue     = "value"
)

// Header is the stable field set written by every flat backend.
var Header = []string{ColDate, ColAuthor, ColModel, ColBenchmark, ColSubject, ColPrompt, ColMetric, ColValue} //nolint:gochecknoglobals // fixed layout

// Encode renders rec in Header order.
func Encode(rec *model.EvaluationRecord) []string {
	return []string{
		model.FormatDate(rec.Date),
		rec.Author,
		rec.Model,
		rec.Benchmark,
		rec.Subject,
		rec.Prompt,
		rec.Metric,
		strconv.FormatFloat(rec.Value, 'g', -1, 64),
	}
}

// Layout maps column names to positions of one input header.
type Layout struct {
	index [8]int
	width int
}

// NewLayout resolves Header columns in header. Extra columns are ignored;
// a missing one is malformed.
func NewLayout(header []string) (Layout, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	var l Layout
	l.width = len(header)
	for i, col := range Header {
		p, ok := pos[col]
		if !ok {
			return Layout{}, errkind.Wrap(errkind.ErrMalformed, fmt.Sprintf("missing column %q", col), nil)
		}
		l.index[i] = p
	}
	return l, nil
}

// Decode parses one row laid out as l.
func (l Layout) Decode(row []string) (model.EvaluationRecord, error) {
	if len(row) < l.width {
		return model.EvaluationRecord{}, errkind.Wrap(errkind.ErrMalformed,
			fmt.Sprintf("row has %d fields, want %d", len(row), l.width), nil)
	}
	get := func(i int) string { return row[l.index[i]] }

	date, err := model.ParseDate(get(0))
	if err != nil {
		return model.EvaluationRecord{}, err
	}
	value, err := strconv.ParseFloat(get(7), 64)
	if err != nil {
		return model.EvaluationRecord{}, errkind.Wrap(errkind.ErrMalformed, "value "+get(7), err)
	}
	return model.EvaluationRecord{
		Date:      date,
		Author:    get(1),
		Model:     get(2),
		Benchmark: get(3),
		Subject:   get(4),
		Prompt:    get(5),
		Metric:    get(6),
		Value:     value,
	}, nil
}
