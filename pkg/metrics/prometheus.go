// Package metrics provides Prometheus metrics for the cooldown timeline service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the timeline service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	metricPrefix   string
	registry       prometheus.Registerer

	// Timeline business metrics, labeled by ability
	eventsAdded     *prometheus.CounterVec
	eventsRemoved   *prometheus.CounterVec
	timeUpdates     *prometheus.CounterVec
	clampedUpdates  *prometheus.CounterVec
	cascadeShifts   *prometheus.CounterVec
	chargeFallbacks *prometheus.CounterVec
	idempotentHits  prometheus.Counter

	// Session state
	trackedEvents       prometheus.Gauge
	registeredAbilities prometheus.Gauge
	timelineLength      prometheus.Gauge

	// Derivation performance
	timelineComputeLatency prometheus.Histogram
	timelineCacheHits      prometheus.Counter
	timelineCacheMisses    prometheus.Counter
	storeLatency           prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:      "cdtl",
		subsystem:      "timeline",
		latencyBuckets: prometheus.DefBuckets,
		constLabels:    make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.eventsAdded = m.counterVec("events_added_total", "Total number of ability uses added", "ability")
	m.eventsRemoved = m.counterVec("events_removed_total", "Total number of ability uses removed", "ability")
	m.timeUpdates = m.counterVec("time_updates_total", "Total number of event time edits", "ability")
	m.clampedUpdates = m.counterVec("clamped_updates_total", "Time edits moved later than requested to respect cooldown spacing", "ability")
	m.cascadeShifts = m.counterVec("cascade_shifts_total", "Later uses pushed forward by an edit", "ability")
	m.chargeFallbacks = m.counterVec("charge_fallbacks_total", "Uses assigned to a charge slot that was still recovering", "ability")
	m.idempotentHits = m.counter("idempotent_replays_total", "Add requests answered from the idempotency cache")

	m.trackedEvents = m.gauge("tracked_events", "Current number of usage events on the timeline")
	m.registeredAbilities = m.gauge("registered_abilities", "Current number of registered abilities")
	m.timelineLength = m.gauge("length_seconds", "Configured timeline length in seconds")

	m.timelineComputeLatency = m.histogram("compute_latency_milliseconds", "Time to derive one ability timeline in milliseconds", m.latencyBuckets)
	m.timelineCacheHits = m.counter("cache_hits_total", "Timeline reads served from the derived cache")
	m.timelineCacheMisses = m.counter("cache_misses_total", "Timeline reads that recomputed the chain")
	m.storeLatency = m.histogram("store_write_latency_milliseconds", "Event store write latency in milliseconds", m.latencyBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of failed operations in milliseconds", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordEventAdded increments the added counter for ability.
func RecordEventAdded(ability string) {
	globalManager.eventsAdded.WithLabelValues(ability).Inc()
}

// RecordEventRemoved increments the removed counter for ability.
func RecordEventRemoved(ability string) {
	globalManager.eventsRemoved.WithLabelValues(ability).Inc()
}

// RecordTimeUpdate records one edit and its outcome.
func RecordTimeUpdate(ability string, clamped bool, shifted int) {
	globalManager.timeUpdates.WithLabelValues(ability).Inc()
	if clamped {
		globalManager.clampedUpdates.WithLabelValues(ability).Inc()
	}
	if shifted > 0 {
		globalManager.cascadeShifts.WithLabelValues(ability).Add(float64(shifted))
	}
}

// RecordChargeFallbacks adds n slot fallbacks for ability.
func RecordChargeFallbacks(ability string, n int) {
	if n > 0 {
		globalManager.chargeFallbacks.WithLabelValues(ability).Add(float64(n))
	}
}

// RecordIdempotentReplay increments the idempotency cache hit counter.
func RecordIdempotentReplay() {
	globalManager.idempotentHits.Inc()
}

// UpdateTrackedEvents sets the number of stored events.
func UpdateTrackedEvents(count int) {
	globalManager.trackedEvents.Set(float64(count))
}

// UpdateRegisteredAbilities sets the number of registered abilities.
func UpdateRegisteredAbilities(count int) {
	globalManager.registeredAbilities.Set(float64(count))
}

// UpdateTimelineLength sets the timeline length gauge.
func UpdateTimelineLength(seconds int) {
	globalManager.timelineLength.Set(float64(seconds))
}

// RecordTimelineCompute records how long a timeline derivation took.
func RecordTimelineCompute(latencyMs float64) {
	globalManager.timelineComputeLatency.Observe(latencyMs)
}

// RecordTimelineCacheHit increments the cache hit counter.
func RecordTimelineCacheHit() {
	globalManager.timelineCacheHits.Inc()
}

// RecordTimelineCacheMiss increments the cache miss counter.
func RecordTimelineCacheMiss() {
	globalManager.timelineCacheMisses.Inc()
}

// RecordStoreLatency records an event store write latency.
func RecordStoreLatency(latencyMs float64) {
	globalManager.storeLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of a failed operation.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry that backs the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
