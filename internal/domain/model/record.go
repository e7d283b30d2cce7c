// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/okian/evalharvest/internal/domain/errkind"
)

// EvaluationRecord is one normalized metric observation for one prompt.
type EvaluationRecord struct {
	// Date is the snapshot date of the submission.
	Date      time.Time
	Author    string
	Model     string
	Benchmark string

	// Subject is the category within the benchmark, "_" when absent.
	Subject string

	// Prompt is the content digest of the prompt text.
	Prompt string
	Metric string

	// Value is always finite; booleans are widened to 0 or 1.
	Value float64
}

// SubmissionKey identifies one submission, the unit of deduplication.
type SubmissionKey struct {
	Author    string
	Model     string
	Benchmark string
	Subject   string
}

// Key returns the submission the record belongs to.
func (r *EvaluationRecord) Key() SubmissionKey {
	return SubmissionKey{
		Author:    r.Author,
		Model:     r.Model,
		Benchmark: r.Benchmark,
		Subject:   r.Subject,
	}
}

func (k SubmissionKey) String() string {
	return k.Author + "/" + k.Model + "/" + k.Benchmark + "/" + k.Subject
}

// MetricTriple is what the extractor yields per row and metric.
type MetricTriple struct {
	Prompt string
	Metric string
	Value  float64
}

// DateLayout is the canonical textual form of a record date.
const DateLayout = time.RFC3339Nano

// Layouts accepted when reading dates back from persisted batches.
var dateLayouts = []string{ //nolint:gochecknoglobals // read-only parse table
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FormatDate renders t in UTC using DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate reads a date written by FormatDate or by common tabular tools.
// Values without a zone are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errkind.Wrap(errkind.ErrMalformed, fmt.Sprintf("date %q", s), nil)
}
