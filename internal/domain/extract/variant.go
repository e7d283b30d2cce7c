package extract

import (
	"sort"
	"strings"
)

// Variant is the record layout of one source.
type Variant int

const (
	// Explicit rows carry one (possibly prefixed) column per known metric.
	Explicit Variant = iota
	// Nested rows carry a mapping of metric name to value.
	Nested
)

// MetricsColumn marks the nested layout.
const MetricsColumn = "metrics"

// ExplicitMetrics is the closed metric set of the explicit layout, in
// emission order.
var ExplicitMetrics = []string{"em", "f1", "mc1", "mc2", "acc", "acc_norm"} //nolint:gochecknoglobals // fixed metric set

// Separators accepted between a column prefix and a metric name. An
// underscore is not one: pred_em or gold_f1 are not metrics.
const prefixSeparators = "|:."

func (v Variant) String() string {
	if v == Nested {
		return "nested"
	}
	return "explicit"
}

// Detect picks the layout from the columns of a row.
func Detect(row Row) Variant {
	if _, ok := row[MetricsColumn]; ok {
		return Nested
	}
	return Explicit
}

// rawMetric is a metric name with its value before coercion.
type rawMetric struct {
	name  string
	value any
}

// metricsOf returns the raw metrics of row for variant v.
func metricsOf(v Variant, row Row) []rawMetric {
	if v == Nested {
		return nestedMetrics(row)
	}
	return explicitMetrics(row)
}

// nestedMetrics yields every entry of the metrics mapping, ordered by name.
func nestedMetrics(row Row) []rawMetric {
	m, ok := row[MetricsColumn].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]rawMetric, 0, len(names))
	for _, name := range names {
		out = append(out, rawMetric{name: name, value: m[name]})
	}
	return out
}

// explicitMetrics yields the known metrics present in row in set order.
func explicitMetrics(row Row) []rawMetric {
	var columns []string
	out := make([]rawMetric, 0, len(ExplicitMetrics))
	for _, name := range ExplicitMetrics {
		if v, ok := row[name]; ok {
			out = append(out, rawMetric{name: name, value: v})
			continue
		}
		if columns == nil {
			columns = sortedColumns(row)
		}
		if col, ok := prefixedColumn(columns, name); ok {
			out = append(out, rawMetric{name: name, value: row[col]})
		}
	}
	return out
}

// prefixedColumn finds the first column named <prefix><sep><name>.
func prefixedColumn(columns []string, name string) (string, bool) {
	for _, col := range columns {
		if len(col) <= len(name) || !strings.HasSuffix(col, name) {
			continue
		}
		if strings.IndexByte(prefixSeparators, col[len(col)-len(name)-1]) >= 0 {
			return col, true
		}
	}
	return "", false
}

func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
