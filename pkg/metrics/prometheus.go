// Package metrics provides Prometheus metrics for the dextap event decoder.
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

// latencyBucketsMicros spans sub-millisecond to multi-second end-to-end latency.
var latencyBucketsMicros = []float64{ //nolint:gochecknoglobals // fixed bucket layout
	250, 500, 1_000, 2_500, 5_000, 10_000, 25_000, 50_000, 75_000,
	100_000, 250_000, 500_000, 1_000_000, 2_500_000,
}

// Manager manages all Prometheus metrics for the decoder.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Stream metrics
	framesReceived  prometheus.Counter
	framesMalformed prometheus.Counter
	framesFiltered  prometheus.Counter
	eventsByTag     *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	decodeDuration  prometheus.Histogram

	// Decoder metrics
	identifiersDecoded prometheus.Counter
	credentialsDecoded prometheus.Counter
	encodeFallbacks    prometheus.Counter
	depthExceeded      prometheus.Counter

	// Latency metrics
	endToEndLatency  prometheus.Histogram
	latencyTier      *prometheus.CounterVec
	clockSkew        prometheus.Counter
	latencyMissing   prometheus.Counter
	lastLatencyMicro prometheus.Gauge

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueWaitLatency   prometheus.Histogram

	// Transport metrics
	wsConnections    *prometheus.CounterVec
	wsBytesReceived  prometheus.Counter
	hubClients       prometheus.Gauge
	hubBroadcasts    prometheus.Counter
	hubDroppedClient prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec

	// System metrics
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
		namespace:        "dextap",
		subsystem:        "decoder",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether collection is on for this manager.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval returns how often gauges sampled by a ticker should refresh.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	m.framesReceived = m.counter("frames_received_total", "Total number of frames received from the upstream feed")
	m.framesMalformed = m.counter("frames_malformed_total", "Total number of frames that were not valid JSON")
	m.framesFiltered = m.counter("frames_filtered_total", "Total number of decoded events hidden by the event filter")
	m.eventsByTag = m.counterVec("events_total", "Total number of classified events by category and protocol", "category", "protocol")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Total number of duplicate events suppressed")
	m.decodeDuration = m.histogram("decode_duration_microseconds", "Time spent parsing and decoding a single frame",
		[]float64{5, 10, 25, 50, 100, 250, 500, 1_000, 5_000})

	m.identifiersDecoded = m.counter("identifiers_decoded_total", "Total number of 32-byte arrays re-encoded as identifiers")
	m.credentialsDecoded = m.counter("credentials_decoded_total", "Total number of 64-byte signature arrays re-encoded as credentials")
	m.encodeFallbacks = m.counter("encode_fallbacks_total", "Total number of byte arrays rendered as decimal lists after an encode failure")
	m.depthExceeded = m.counter("depth_exceeded_total", "Total number of records rejected for exceeding the nesting limit")

	m.endToEndLatency = m.histogram("end_to_end_latency_microseconds", "Upstream receive to local receive latency", latencyBucketsMicros)
	m.latencyTier = m.counterVec("latency_tier_total", "Events by latency tier", "tier")
	m.clockSkew = m.counter("clock_skew_total", "Events whose raw latency was negative")
	m.latencyMissing = m.counter("latency_missing_total", "Events without an upstream receive timestamp")
	m.lastLatencyMicro = m.gauge("last_latency_microseconds", "Display latency of the most recent event")

	m.queueSize = m.gauge("queue_size", "Current number of frames waiting to be handled")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the frame queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Frame queue utilization ratio (0-1)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of frames enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of frames dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of frames dropped at enqueue")
	m.queueWaitLatency = m.histogram("queue_wait_microseconds", "Time a frame waited between receipt and handling", latencyBucketsMicros)

	m.wsConnections = m.counterVec("ws_connection_events_total", "WebSocket connection lifecycle events", "event")
	m.wsBytesReceived = m.counter("ws_bytes_received_total", "Total payload bytes received over WebSocket")
	m.hubClients = m.gauge("hub_clients", "Number of clients attached to the feed hub")
	m.hubBroadcasts = m.counter("hub_broadcasts_total", "Total number of frames broadcast by the feed hub")
	m.hubDroppedClient = m.counter("hub_dropped_clients_total", "Total number of clients dropped by the feed hub")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Stream Metrics Functions.

// RecordFrameReceived counts an inbound frame and its payload size.
func RecordFrameReceived(bytes int) {
	globalManager.framesReceived.Inc()
	globalManager.wsBytesReceived.Add(float64(bytes))
}

// RecordFrameMalformed counts a frame that failed JSON parsing.
func RecordFrameMalformed() {
	globalManager.framesMalformed.Inc()
}

// RecordFrameFiltered counts a decoded event that was not rendered.
func RecordFrameFiltered() {
	globalManager.framesFiltered.Inc()
}

// RecordEvent counts a classified event. Category is bounded by the variant
// catalog, so raw tags never become label values.
func RecordEvent(category, protocol string) {
	globalManager.eventsByTag.WithLabelValues(category, protocol).Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordDecodeDuration records parse+decode time in microseconds.
func RecordDecodeDuration(micros float64) {
	globalManager.decodeDuration.Observe(micros)
}

// Decoder Metrics Functions.

// RecordDecoded adds the identifier, credential and fallback counts of one frame.
func RecordDecoded(identifiers, credentials, fallbacks int) {
	globalManager.identifiersDecoded.Add(float64(identifiers))
	globalManager.credentialsDecoded.Add(float64(credentials))
	globalManager.encodeFallbacks.Add(float64(fallbacks))
}

// RecordDepthExceeded counts a record rejected by the nesting limit.
func RecordDepthExceeded() {
	globalManager.depthExceeded.Inc()
}

// Latency Metrics Functions.

// RecordLatency observes one end-to-end latency measurement.
func RecordLatency(displayMicros int64, tier string, skew bool) {
	globalManager.endToEndLatency.Observe(float64(displayMicros))
	globalManager.lastLatencyMicro.Set(float64(displayMicros))
	globalManager.latencyTier.WithLabelValues(tier).Inc()
	if skew {
		globalManager.clockSkew.Inc()
	}
}

// RecordLatencyMissing counts an event that carried no upstream timestamp.
func RecordLatencyMissing() {
	globalManager.latencyMissing.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueWait records how long a frame sat in the queue, in microseconds.
func RecordQueueWait(micros float64) {
	globalManager.queueWaitLatency.Observe(micros)
}

// Transport Metrics Functions.

// RecordConnectionEvent counts a connection lifecycle event (open, close, error).
func RecordConnectionEvent(event string) {
	globalManager.wsConnections.WithLabelValues(event).Inc()
}

// UpdateHubClients sets the number of attached feed clients.
func UpdateHubClients(count int) {
	globalManager.hubClients.Set(float64(count))
}

// RecordHubBroadcast increments the broadcast counter.
func RecordHubBroadcast() {
	globalManager.hubBroadcasts.Inc()
}

// RecordHubDroppedClient increments the dropped client counter.
func RecordHubDroppedClient() {
	globalManager.hubDroppedClient.Inc()
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

// RefreshInterval is how often sampled gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
