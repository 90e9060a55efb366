// Package metrics provides Prometheus metrics for the nutrient monitor service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Sync metrics
	syncRuns     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	listErrors   prometheus.Counter

	// Fetch metrics
	fetches       *prometheus.CounterVec
	fetchAttempts *prometheus.CounterVec
	fetchBytes    prometheus.Counter
	fetchLatency  prometheus.Histogram

	// Worker metrics
	workerActiveCount *prometheus.GaugeVec
	queueDepth        *prometheus.GaugeVec

	// Ingest metrics
	ingestFiles     *prometheus.CounterVec
	ingestRecords   prometheus.Gauge
	ingestDropped   *prometheus.CounterVec
	cacheReloads    prometheus.Counter
	cacheHits       prometheus.Counter
	cacheLoadTimeMs prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
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
		namespace:        "nutrimon",
		subsystem:        "",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.syncRuns = auto.NewCounterVec(
		m.counterOpts("sync_runs_total", "Sync runs by kind (data, icons) and outcome (ok, partial, failed)"),
		[]string{"kind", "outcome"},
	)
	m.syncDuration = auto.NewHistogramVec(
		m.histogramOpts("sync_duration_milliseconds", "Wall time of a sync run in milliseconds"),
		[]string{"kind"},
	)
	m.listErrors = auto.NewCounter(
		m.counterOpts("list_errors_total", "Remote folders that could not be listed during a walk"),
	)

	m.fetches = auto.NewCounterVec(
		m.counterOpts("fetches_total", "Completed file fetches by kind and result"),
		[]string{"kind", "result"},
	)
	m.fetchAttempts = auto.NewCounterVec(
		m.counterOpts("fetch_attempts_total", "Individual download attempts by kind"),
		[]string{"kind"},
	)
	m.fetchBytes = auto.NewCounter(
		m.counterOpts("fetch_bytes_total", "Bytes written to local storage by fetches"),
	)
	m.fetchLatency = auto.NewHistogram(
		m.histogramOpts("fetch_latency_milliseconds", "Latency of a whole fetch including retries"),
	)

	m.workerActiveCount = auto.NewGaugeVec(
		m.gaugeOpts("worker_active_count", "Fetch workers currently busy by pool"),
		[]string{"pool"},
	)
	m.queueDepth = auto.NewGaugeVec(
		m.gaugeOpts("queue_depth", "Jobs waiting in a fetch queue"),
		[]string{"queue"},
	)

	m.ingestFiles = auto.NewCounterVec(
		m.counterOpts("ingest_files_total", "Measurement files read by result (loaded, skipped)"),
		[]string{"result"},
	)
	m.ingestRecords = auto.NewGauge(
		m.gaugeOpts("ingest_records", "Records in the most recently ingested dataset"),
	)
	m.ingestDropped = auto.NewCounterVec(
		m.counterOpts("ingest_dropped_rows_total", "Rows dropped during ingestion by reason"),
		[]string{"reason"},
	)
	m.cacheReloads = auto.NewCounter(
		m.counterOpts("dataset_cache_reloads_total", "Dataset reloads from disk"),
	)
	m.cacheHits = auto.NewCounter(
		m.counterOpts("dataset_cache_hits_total", "Dataset requests served from cache"),
	)
	m.cacheLoadTimeMs = auto.NewHistogram(
		m.histogramOpts("dataset_load_milliseconds", "Time spent ingesting the dataset from disk"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
}

// Sync Metrics Functions.

// RecordSyncRun counts a finished sync run.
func RecordSyncRun(kind, outcome string) {
	globalManager.syncRuns.WithLabelValues(kind, outcome).Inc()
}

// RecordSyncDuration records how long a sync run took.
func RecordSyncDuration(kind string, durationMs float64) {
	globalManager.syncDuration.WithLabelValues(kind).Observe(durationMs)
}

// RecordListError counts folders that could not be listed.
func RecordListError(count int) {
	globalManager.listErrors.Add(float64(count))
}

// Fetch Metrics Functions.

// RecordFetch counts a finished fetch; result is "ok" or "failed".
func RecordFetch(kind, result string) {
	globalManager.fetches.WithLabelValues(kind, result).Inc()
}

// RecordFetchAttempt counts a single download attempt.
func RecordFetchAttempt(kind string) {
	globalManager.fetchAttempts.WithLabelValues(kind).Inc()
}

// RecordFetchBytes adds bytes written by a fetch.
func RecordFetchBytes(n int64) {
	globalManager.fetchBytes.Add(float64(n))
}

// RecordFetchLatency records latency of a fetch including retries.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount adjusts the number of busy workers in a pool by delta.
func UpdateWorkerActiveCount(pool string, delta int) {
	globalManager.workerActiveCount.WithLabelValues(pool).Add(float64(delta))
}

// UpdateQueueDepth sets the number of jobs waiting in queue.
func UpdateQueueDepth(queue string, depth int) {
	globalManager.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// Ingest Metrics Functions.

// RecordIngestFile counts a measurement file; result is "loaded" or "skipped".
func RecordIngestFile(result string) {
	globalManager.ingestFiles.WithLabelValues(result).Inc()
}

// UpdateIngestRecords sets the record count of the current dataset.
func UpdateIngestRecords(count int) {
	globalManager.ingestRecords.Set(float64(count))
}

// RecordIngestDropped counts rows dropped for reason.
func RecordIngestDropped(reason string, count int) {
	if count <= 0 {
		return
	}
	globalManager.ingestDropped.WithLabelValues(reason).Add(float64(count))
}

// RecordCacheReload counts a dataset reload and its duration.
func RecordCacheReload(durationMs float64) {
	globalManager.cacheReloads.Inc()
	globalManager.cacheLoadTimeMs.Observe(durationMs)
}

// RecordCacheHit counts a dataset request served from cache.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
