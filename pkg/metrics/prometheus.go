// Package metrics provides Prometheus metrics for the keysprint service.
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
	registry         prometheus.Registerer

	// Race lifecycle
	racesStarted   prometheus.Counter
	racesFinished  prometheus.Counter
	roomResets     prometheus.Counter
	countdownTicks prometheus.Counter
	botTicks       prometheus.Counter
	activePlayers  prometheus.Gauge

	// Intent handling
	intentsProcessed *prometheus.CounterVec
	intentsDropped   prometheus.Counter
	intentsIgnored   *prometheus.CounterVec

	// Transport
	busPublished   *prometheus.CounterVec
	busDeliveries  prometheus.Counter
	busDropped     prometheus.Counter
	busSubscribers prometheus.Gauge

	// Reported speeds
	playerWPM prometheus.Histogram
	botWPM    prometheus.Histogram

	// Result log
	resultsAppended prometheus.Counter
	resultLogSize   prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "keysprint",
		subsystem:        "race",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.racesStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "races_started_total",
		Help:      "Total number of races that reached the racing phase",
	})

	m.racesFinished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "races_finished_total",
		Help:      "Total number of races that reached the finished phase",
	})

	m.roomResets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "room_resets_total",
		Help:      "Total number of room resets (play-again and leave teardowns)",
	})

	m.countdownTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "countdown_ticks_total",
		Help:      "Total number of countdown decrements broadcast",
	})

	m.botTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bot_ticks_total",
		Help:      "Total number of synthetic participant progress updates",
	})

	m.activePlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_players",
		Help:      "Current number of players in the room, bot included",
	})

	m.intentsProcessed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "intents_processed_total",
			Help:      "Total number of intents processed by the coordinator, by type",
		},
		[]string{"intent"},
	)

	m.intentsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "intents_dropped_total",
		Help:      "Total number of intents dropped due to a full intent buffer",
	})

	m.intentsIgnored = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "intents_ignored_total",
			Help:      "Total number of intents ignored by invariant guards, by reason",
		},
		[]string{"reason"},
	)

	m.busPublished = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Total number of events accepted for publication, by event name",
		},
		[]string{"event"},
	)

	m.busDeliveries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bus",
		Name:      "deliveries_total",
		Help:      "Total number of handler invocations across all subscribers",
	})

	m.busDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "bus",
		Name:      "dropped_total",
		Help:      "Total number of publishes rejected by a full or closed bus",
	})

	m.busSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "bus",
		Name:      "subscribers",
		Help:      "Current number of registered subscriptions",
	})

	m.playerWPM = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "player_wpm",
		Help:      "Distribution of human-reported words per minute",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 80, 100, 120, 150, 200},
	})

	m.botWPM = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bot_wpm",
		Help:      "Distribution of synthetic participant words per minute",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 80, 100, 120, 150, 200},
	})

	m.resultsAppended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "results",
		Name:      "appended_total",
		Help:      "Total number of results appended to the local log",
	})

	m.resultLogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "results",
		Name:      "log_size",
		Help:      "Current number of results in the local log",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Current heap memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Current number of goroutines",
	})
}

// Package-level helpers operating on the global manager.

func RecordRaceStarted() {
	globalManager.racesStarted.Inc()
}

func RecordRaceFinished() {
	globalManager.racesFinished.Inc()
}

func RecordRoomReset() {
	globalManager.roomResets.Inc()
}

func RecordCountdownTick() {
	globalManager.countdownTicks.Inc()
}

func RecordBotTick() {
	globalManager.botTicks.Inc()
}

func UpdateActivePlayers(count int) {
	globalManager.activePlayers.Set(float64(count))
}

func RecordIntentProcessed(intent string) {
	globalManager.intentsProcessed.WithLabelValues(intent).Inc()
}

func RecordIntentDropped() {
	globalManager.intentsDropped.Inc()
}

func RecordIntentIgnored(reason string) {
	globalManager.intentsIgnored.WithLabelValues(reason).Inc()
}

func RecordBusPublished(event string) {
	globalManager.busPublished.WithLabelValues(event).Inc()
}

func RecordBusDelivery() {
	globalManager.busDeliveries.Inc()
}

func RecordBusDropped() {
	globalManager.busDropped.Inc()
}

func UpdateBusSubscribers(count int) {
	globalManager.busSubscribers.Set(float64(count))
}

func RecordPlayerWPM(wpm float64) {
	globalManager.playerWPM.Observe(wpm)
}

func RecordBotWPM(wpm float64) {
	globalManager.botWPM.Observe(wpm)
}

func RecordResultAppended() {
	globalManager.resultsAppended.Inc()
}

func UpdateResultLogSize(count int) {
	globalManager.resultLogSize.Set(float64(count))
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager so the
// HTTP layer can serve it.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
