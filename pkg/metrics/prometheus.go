// Package metrics provides Prometheus metrics for the grant feature pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics of a pipeline run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Run Metrics
	runs           *prometheus.CounterVec
	lastSuccess    prometheus.Gauge
	stageDuration  *prometheus.HistogramVec
	rows           *prometheus.GaugeVec
	duplicateRows  prometheus.Counter
	joinDropped    *prometheus.CounterVec
	imputedCells   *prometheus.CounterVec
	exportedRows   *prometheus.CounterVec
	errorsByOrigin *prometheus.CounterVec

	// Store Metrics
	storeRecords      prometheus.Gauge
	storeQueryLatency prometheus.Histogram

	// HTTP Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "grantfeat",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Pipeline runs by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.lastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix time of the last successful run",
		ConstLabels: m.constLabels,
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_milliseconds",
		Help:        "Duration of each pipeline stage in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.rows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows",
		Help:        "Rows produced by each stage of the last run",
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.duplicateRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "duplicate_rows_total",
		Help:        "Researcher rows removed as exact duplicates during reshaping",
		ConstLabels: m.constLabels,
	})

	m.joinDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "join_dropped_total",
		Help:        "Applications discarded by the inner join, by aggregate",
		ConstLabels: m.constLabels,
	}, []string{"aggregate"})

	m.imputedCells = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "imputed_cells_total",
		Help:        "Missing cells filled by imputation, by column",
		ConstLabels: m.constLabels,
	}, []string{"column"})

	m.exportedRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "exported_rows_total",
		Help:        "Feature rows written, by output format",
		ConstLabels: m.constLabels,
	}, []string{"format"})

	m.errorsByOrigin = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Errors by component and type",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})

	m.storeRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_records",
		Help:        "Applications held by the feature store",
		ConstLabels: m.constLabels,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_query_latency_milliseconds",
		Help:        "Feature store query latency in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests by endpoint, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordRun increments the run counter for result ("success" or "failure").
func RecordRun(result string) {
	globalManager.runs.WithLabelValues(result).Inc()
}

// UpdateLastSuccess sets the time of the last successful run.
func UpdateLastSuccess(unix float64) {
	globalManager.lastSuccess.Set(unix)
}

// RecordStageDuration records the duration of a stage in milliseconds.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// UpdateRows sets the number of rows a stage produced.
func UpdateRows(stage string, count int) {
	globalManager.rows.WithLabelValues(stage).Set(float64(count))
}

// RecordDuplicateRows adds to the duplicate researcher row counter.
func RecordDuplicateRows(count int) {
	globalManager.duplicateRows.Add(float64(count))
}

// RecordJoinDropped adds to the dropped application counter of an aggregate.
func RecordJoinDropped(aggregate string, count int) {
	globalManager.joinDropped.WithLabelValues(aggregate).Add(float64(count))
}

// RecordImputed adds to the imputed cell counter of a column.
func RecordImputed(column string, count int) {
	globalManager.imputedCells.WithLabelValues(column).Add(float64(count))
}

// RecordExportedRows adds to the exported row counter of a format.
func RecordExportedRows(format string, count int) {
	globalManager.exportedRows.WithLabelValues(format).Add(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByOrigin.WithLabelValues(component, errorType).Inc()
}

// UpdateStoreRecords sets the number of applications in the store.
func UpdateStoreRecords(count int) {
	globalManager.storeRecords.Set(float64(count))
}

// RecordStoreQueryLatency records a store query latency in milliseconds.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current metrics in the text exposition format,
// for collection by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrWriteTextfile, err)
	}
	return nil
}
