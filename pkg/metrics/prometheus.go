// Package metrics provides Prometheus metrics for the evaluation harvester.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the harvester.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline items
	itemsProcessed prometheus.Counter
	itemsSkipped   *prometheus.CounterVec
	itemLatency    prometheus.Histogram

	// Retrying fetcher
	fetchAttempts *prometheus.CounterVec
	fetchRetries  *prometheus.CounterVec
	backoffSleep  prometheus.Histogram

	// Extraction and merge
	recordsExtracted prometheus.Counter
	metricsSkipped   prometheus.Counter
	recordsStale     prometheus.Counter
	itemsFlagged     prometheus.Counter
	indexEntries     prometheus.Gauge

	// Sink
	flushes      *prometheus.CounterVec
	flushErrors  *prometheus.CounterVec
	flushLatency *prometheus.HistogramVec
	flushedRows  *prometheus.CounterVec
	bufferedRows prometheus.Gauge

	// Queue and workers
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	activeWorkers prometheus.Gauge

	// Ops HTTP
	httpRequests *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "evalharvest",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.itemsProcessed = m.counter("items_processed_total", "Work items that completed retrieval, extraction and merge")
	m.itemsSkipped = m.counterVec("items_skipped_total", "Work items skipped after an error, by error class", "class")
	m.itemLatency = m.histogram("item_duration_seconds", "Wall time spent on one work item", m.histogramBuckets)

	m.fetchAttempts = m.counterVec("fetch_attempts_total", "Remote read attempts by operation", "op")
	m.fetchRetries = m.counterVec("fetch_retries_total", "Remote reads retried after a transient error", "op")
	m.backoffSleep = m.histogram("backoff_sleep_seconds", "Backoff delay slept before a retry",
		[]float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300})

	m.recordsExtracted = m.counter("records_extracted_total", "Metric records extracted from snapshot rows")
	m.metricsSkipped = m.counter("metrics_skipped_total", "Raw metric values that could not be coerced to a number")
	m.recordsStale = m.counter("records_stale_total", "Records dropped because the corpus already holds a newer or equal submission")
	m.itemsFlagged = m.counter("items_flagged_total", "Work items suppressed because their author/model pair is flagged")
	m.indexEntries = m.gauge("freshness_index_entries", "Submission keys held by the freshness index")

	m.flushes = m.counterVec("sink_flushes_total", "Sink flushes by backend", "backend")
	m.flushErrors = m.counterVec("sink_flush_errors_total", "Failed sink flushes by backend", "backend")
	m.flushLatency = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sink_flush_duration_seconds",
		Help:        "Time spent persisting one buffered batch",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"backend"})
	m.flushedRows = m.counterVec("sink_rows_total", "Rows persisted by backend", "backend")
	m.bufferedRows = m.gauge("sink_buffered_rows", "Rows currently buffered awaiting flush")

	m.queueSize = m.gauge("queue_size", "Work items waiting in the task queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the task queue")
	m.activeWorkers = m.gauge("active_workers", "Workers currently running")

	m.httpRequests = m.counterVec("http_requests_total", "Ops HTTP requests by endpoint and status", "endpoint", "status_code")
}

// RecordItemProcessed increments the processed item counter and observes its duration.
func RecordItemProcessed(seconds float64) {
	globalManager.itemsProcessed.Inc()
	globalManager.itemLatency.Observe(seconds)
}

// RecordItemSkipped increments the skipped item counter for an error class.
func RecordItemSkipped(class string) {
	globalManager.itemsSkipped.WithLabelValues(class).Inc()
}

// RecordFetchAttempt counts one remote read attempt.
func RecordFetchAttempt(op string) {
	globalManager.fetchAttempts.WithLabelValues(op).Inc()
}

// RecordFetchRetry counts a retry and the delay slept before it.
func RecordFetchRetry(op string, delaySeconds float64) {
	globalManager.fetchRetries.WithLabelValues(op).Inc()
	globalManager.backoffSleep.Observe(delaySeconds)
}

// RecordRecordsExtracted adds n extracted records.
func RecordRecordsExtracted(n int) {
	globalManager.recordsExtracted.Add(float64(n))
}

// RecordMetricSkipped counts a metric value dropped during coercion.
func RecordMetricSkipped() {
	globalManager.metricsSkipped.Inc()
}

// RecordRecordStale counts a record dropped by the freshness merge.
func RecordRecordStale() {
	globalManager.recordsStale.Inc()
}

// RecordItemFlagged counts a work item suppressed by the exclusion list.
func RecordItemFlagged() {
	globalManager.itemsFlagged.Inc()
}

// UpdateIndexEntries sets the freshness index size.
func UpdateIndexEntries(n int) {
	globalManager.indexEntries.Set(float64(n))
}

// RecordFlush records a successful flush of rows to backend.
func RecordFlush(backend string, rows int, seconds float64) {
	globalManager.flushes.WithLabelValues(backend).Inc()
	globalManager.flushedRows.WithLabelValues(backend).Add(float64(rows))
	globalManager.flushLatency.WithLabelValues(backend).Observe(seconds)
}

// RecordFlushError counts a failed flush.
func RecordFlushError(backend string) {
	globalManager.flushErrors.WithLabelValues(backend).Inc()
}

// UpdateBufferedRows sets the number of rows buffered in the sink.
func UpdateBufferedRows(n int) {
	globalManager.bufferedRows.Set(float64(n))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// AddActiveWorkers adjusts the running worker gauge by delta.
func AddActiveWorkers(delta int) {
	globalManager.activeWorkers.Add(float64(delta))
}

// RecordHTTPRequest records an ops HTTP request.
func RecordHTTPRequest(endpoint, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, statusCode).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
