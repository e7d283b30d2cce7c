// Package extract normalizes snapshot rows of either record layout into
// metric triples keyed by prompt digest.
package extract

import (
	"context"

	"github.com/okian/evalharvest/internal/domain/digest"
	"github.com/okian/evalharvest/internal/domain/model"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
)

// Row is one decoded snapshot row.
type Row = map[string]any

// Prompt text columns, in lookup order.
var promptColumns = []string{"full_prompt", "prompt"} //nolint:gochecknoglobals // fixed column names

// hashesColumn holds precomputed prompt digests in some layouts.
const hashesColumn = "hashes"

// Result is the outcome of extracting one source.
type Result struct {
	Variant Variant
	Triples []model.MetricTriple
	// Skipped counts metric values that could not be coerced.
	Skipped int
	// Dropped counts rows without any prompt text.
	Dropped int
}

// Extractor turns rows into metric triples.
type Extractor struct {
	logger logger.Logger
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{logger: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract detects the layout from the first row and yields one triple per
// row and coercible metric. A value that cannot be coerced is logged and
// skipped without affecting the rest of its row.
func (e *Extractor) Extract(ctx context.Context, rows []Row) Result {
	var res Result
	if len(rows) == 0 {
		return res
	}
	res.Variant = Detect(rows[0])

	for i, row := range rows {
		prompt, ok := promptDigest(row)
		if !ok {
			res.Dropped++
			e.logger.Warn(ctx, "row has no prompt text", logger.Int("row", i))
			continue
		}
		for _, m := range metricsOf(res.Variant, row) {
			v, ok := Coerce(m.value)
			if !ok {
				res.Skipped++
				metrics.RecordMetricSkipped()
				e.logger.Warn(ctx, "cannot coerce metric value",
					logger.Int("row", i),
					logger.String("metric", m.name),
					logger.Any("value", m.value),
				)
				continue
			}
			res.Triples = append(res.Triples, model.MetricTriple{Prompt: prompt, Metric: m.name, Value: v})
		}
	}

	metrics.RecordRecordsExtracted(len(res.Triples))
	return res
}

// promptDigest hashes the prompt text of row. Rows that only carry a
// precomputed digest under hashes.full_prompt use it as is.
func promptDigest(row Row) (string, bool) {
	for _, col := range promptColumns {
		if s, ok := row[col].(string); ok {
			return digest.Prompt(s), true
		}
	}
	if h, ok := row[hashesColumn].(map[string]any); ok {
		if s, ok := h[promptColumns[0]].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
