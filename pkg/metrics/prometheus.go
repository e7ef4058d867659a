// Package metrics provides Prometheus metrics for the ladder engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the ladder service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics - the pulse of the ladder
	challengesCreated    prometheus.Counter
	challengeTransitions *prometheus.CounterVec
	matchesCompleted     prometheus.Counter
	matchesDisputed      prometheus.Counter
	ladderShifts         prometheus.Counter
	shiftReplays         prometheus.Counter
	shiftDistance        prometheus.Histogram

	// Operational Health Metrics
	ladderSize       prometheus.Gauge
	versionConflicts *prometheus.CounterVec

	// Store Metrics
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Event Pipeline Metrics
	eventQueueSize     prometheus.Gauge
	eventQueueCapacity prometheus.Gauge
	eventsEnqueued     prometheus.Counter
	eventsDequeued     prometheus.Counter
	eventsDropped      *prometheus.CounterVec
	eventsDispatched   *prometheus.CounterVec
	dispatchErrors     *prometheus.CounterVec
	dispatchLatency    prometheus.Histogram
	dispatchWorkers    prometheus.Gauge
	broadcastClients   prometheus.Gauge

	// Enhanced Error Metrics
	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "ladder",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Core Business Metrics
	m.challengesCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "challenges_created_total",
		Help:      "Total number of challenges issued",
	})

	m.challengeTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "challenge_transitions_total",
			Help:      "Total number of challenge state transitions by action",
		},
		[]string{"action"},
	)

	m.matchesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_completed_total",
		Help:      "Total number of matches with an agreed, valid result",
	})

	m.matchesDisputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_disputed_total",
		Help:      "Total number of matches flagged for manual review",
	})

	m.ladderShifts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ladder_shifts_total",
		Help:      "Total number of rank shifts applied to the ladder",
	})

	m.shiftReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ladder_shift_replays_total",
		Help:      "Total number of shift applications suppressed as replays",
	})

	m.shiftDistance = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ladder_shift_distance",
		Help:      "Histogram of rank distance covered by applied shifts",
		Buckets:   []float64{1, 2, 3, 4, 5, 8, 13, 21},
	})

	// Operational Health Metrics
	m.ladderSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ladder_size",
		Help:      "Current number of ranked competitors",
	})

	m.versionConflicts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "version_conflicts_total",
			Help:      "Total number of optimistic concurrency conflicts by entity",
		},
		[]string{"entity"},
	)

	// Store Metrics
	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "Store update operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Store query operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Event Pipeline Metrics
	m.eventQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_queue_size",
		Help:      "Current size of the event queue (backlog indicator)",
	})

	m.eventQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_queue_capacity",
		Help:      "Maximum event queue capacity",
	})

	m.eventsEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_enqueued_total",
		Help:      "Total number of events enqueued",
	})

	m.eventsDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_dequeued_total",
		Help:      "Total number of events dequeued",
	})

	m.eventsDropped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped by reason",
		},
		[]string{"reason"},
	)

	m.eventsDispatched = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_dispatched_total",
			Help:      "Total number of events delivered by sink",
		},
		[]string{"sink"},
	)

	m.dispatchErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "dispatch_errors_total",
			Help:      "Total number of sink delivery failures by sink",
		},
		[]string{"sink"},
	)

	m.dispatchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_latency_milliseconds",
		Help:      "Event dispatch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.dispatchWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_worker_count",
		Help:      "Number of dispatch workers",
	})

	m.broadcastClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_clients",
		Help:      "Number of connected websocket clients",
	})

	// Enhanced Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordChallengeCreated increments the challenges created counter.
func RecordChallengeCreated() {
	globalManager.challengesCreated.Inc()
}

// RecordChallengeTransition records a challenge state transition.
func RecordChallengeTransition(action string) {
	globalManager.challengeTransitions.WithLabelValues(action).Inc()
}

// RecordMatchCompleted increments the completed matches counter.
func RecordMatchCompleted() {
	globalManager.matchesCompleted.Inc()
}

// RecordMatchDisputed increments the disputed matches counter.
func RecordMatchDisputed() {
	globalManager.matchesDisputed.Inc()
}

// RecordLadderShift records an applied rank shift and its distance.
func RecordLadderShift(distance int) {
	globalManager.ladderShifts.Inc()
	globalManager.shiftDistance.Observe(float64(distance))
}

// RecordShiftReplay increments the suppressed replay counter.
func RecordShiftReplay() {
	globalManager.shiftReplays.Inc()
}

// UpdateLadderSize sets the current number of ranked competitors.
func UpdateLadderSize(size int) {
	globalManager.ladderSize.Set(float64(size))
}

// RecordVersionConflict records an optimistic concurrency conflict.
func RecordVersionConflict(entity string) {
	globalManager.versionConflicts.WithLabelValues(entity).Inc()
}

// Store Metrics Functions.

// RecordStoreUpdateLatency records store update operation latency.
func RecordStoreUpdateLatency(latencyMs float64) {
	globalManager.storeUpdateLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records store query operation latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
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

// Event Pipeline Metrics Functions.

// UpdateEventQueueSize sets the current event queue size.
func UpdateEventQueueSize(size int) {
	globalManager.eventQueueSize.Set(float64(size))
}

// UpdateEventQueueCapacity sets the maximum event queue capacity.
func UpdateEventQueueCapacity(capacity int) {
	globalManager.eventQueueCapacity.Set(float64(capacity))
}

// RecordEventEnqueued increments the enqueue counter.
func RecordEventEnqueued() {
	globalManager.eventsEnqueued.Inc()
}

// RecordEventDequeued increments the dequeue counter.
func RecordEventDequeued() {
	globalManager.eventsDequeued.Inc()
}

// RecordEventDropped records a dropped event with its reason.
func RecordEventDropped(reason string) {
	globalManager.eventsDropped.WithLabelValues(reason).Inc()
}

// RecordEventDispatched records a successful delivery to a sink.
func RecordEventDispatched(sink string) {
	globalManager.eventsDispatched.WithLabelValues(sink).Inc()
}

// RecordDispatchError records a failed delivery to a sink.
func RecordDispatchError(sink string) {
	globalManager.dispatchErrors.WithLabelValues(sink).Inc()
}

// RecordDispatchLatency records event dispatch latency.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// UpdateDispatchWorkerCount sets the number of dispatch workers.
func UpdateDispatchWorkerCount(count int) {
	globalManager.dispatchWorkers.Set(float64(count))
}

// UpdateBroadcastClients sets the number of connected websocket clients.
func UpdateBroadcastClients(count int) {
	globalManager.broadcastClients.Set(float64(count))
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

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
