// Package metrics provides Prometheus metrics for the highscores leaderboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the business counters.
const (
	OutcomeCreated       = "created"
	OutcomeAlreadyExists = "already_exists"
	OutcomeUpdated       = "updated"
	OutcomeFound         = "found"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Leaderboard operations
	registrations *prometheus.CounterVec
	scoreUpdates  *prometheus.CounterVec
	lookups       *prometheus.CounterVec
	listings      prometheus.Counter
	totalEntries  prometheus.Gauge

	// Concurrency guard
	guardWait    prometheus.Histogram
	guardHold    prometheus.Histogram
	guardWaiters prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Listing cache
	cacheRequests *prometheus.CounterVec

	// Change feed
	feedSubscribers prometheus.Gauge
	feedEvents      *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "highscores",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
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

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.registrations = auto.NewCounterVec(
		m.counterOpts("registrations_total", "Player registrations by outcome"),
		[]string{"outcome"},
	)
	m.scoreUpdates = auto.NewCounterVec(
		m.counterOpts("score_updates_total", "Score updates by outcome"),
		[]string{"outcome"},
	)
	m.lookups = auto.NewCounterVec(
		m.counterOpts("lookups_total", "Single highscore lookups by outcome"),
		[]string{"outcome"},
	)
	m.listings = auto.NewCounter(m.counterOpts("listings_total", "Full leaderboard listings served"))
	m.totalEntries = auto.NewGauge(m.gaugeOpts("entries", "Number of entries in the leaderboard table"))

	m.guardWait = auto.NewHistogram(m.histogramOpts(
		"guard_wait_milliseconds", "Time spent waiting to acquire the store guard"))
	m.guardHold = auto.NewHistogram(m.histogramOpts(
		"guard_hold_milliseconds", "Time the store guard was held per operation"))
	m.guardWaiters = auto.NewGauge(m.gaugeOpts(
		"guard_waiters", "Callers currently blocked on the store guard"))

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_operation_milliseconds", "Store statement latency by operation"),
		[]string{"op"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Store statement failures by operation"),
		[]string{"op"},
	)

	m.cacheRequests = auto.NewCounterVec(
		m.counterOpts("cache_requests_total", "Listing cache lookups by result (hit, miss, error)"),
		[]string{"result"},
	)

	m.feedSubscribers = auto.NewGauge(m.gaugeOpts("feed_subscribers", "Connected change feed subscribers"))
	m.feedEvents = auto.NewCounterVec(
		m.counterOpts("feed_events_total", "Change feed deliveries by result (delivered, dropped)"),
		[]string{"result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordRegistration counts a registration attempt by outcome.
func RecordRegistration(outcome string) {
	globalManager.registrations.WithLabelValues(outcome).Inc()
}

// RecordScoreUpdate counts a score update attempt by outcome.
func RecordScoreUpdate(outcome string) {
	globalManager.scoreUpdates.WithLabelValues(outcome).Inc()
}

// RecordLookup counts a single highscore lookup by outcome.
func RecordLookup(outcome string) {
	globalManager.lookups.WithLabelValues(outcome).Inc()
}

// RecordListing counts a full leaderboard read.
func RecordListing() {
	globalManager.listings.Inc()
}

// UpdateTotalEntries sets the number of rows in the leaderboard table.
func UpdateTotalEntries(count int) {
	globalManager.totalEntries.Set(float64(count))
}

// RecordGuardWait observes how long a caller waited for the guard.
func RecordGuardWait(latencyMs float64) {
	globalManager.guardWait.Observe(latencyMs)
}

// RecordGuardHold observes how long the guard was held.
func RecordGuardHold(latencyMs float64) {
	globalManager.guardHold.Observe(latencyMs)
}

// AddGuardWaiters adjusts the number of blocked guard callers.
func AddGuardWaiters(delta int) {
	globalManager.guardWaiters.Add(float64(delta))
}

// RecordStoreOperation observes a store statement's latency.
func RecordStoreOperation(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store statement.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordCacheResult counts a listing cache lookup (hit, miss, error).
func RecordCacheResult(result string) {
	globalManager.cacheRequests.WithLabelValues(result).Inc()
}

// UpdateFeedSubscribers sets the number of connected feed subscribers.
func UpdateFeedSubscribers(count int) {
	globalManager.feedSubscribers.Set(float64(count))
}

// RecordFeedEvent counts a feed delivery (delivered, dropped).
func RecordFeedEvent(result string) {
	globalManager.feedEvents.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
