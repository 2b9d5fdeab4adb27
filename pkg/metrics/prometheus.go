// Package metrics provides Prometheus metrics for the arsteady tracking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Tracking
	signals             *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	visibleTargets      prometheus.Gauge
	targetConfidence    *prometheus.GaugeVec
	smoothingCorrection prometheus.Histogram
	missingEntities     prometheus.Counter
	rendererErrors      prometheus.Counter
	clicks              *prometheus.CounterVec

	// Ingestion
	framesIngested  prometheus.Counter
	framesDuplicate prometheus.Counter
	framesDropped   *prometheus.CounterVec
	frameLatency    prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Scene stream
	streamClients  prometheus.Gauge
	streamMessages prometheus.Counter
	streamDropped  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "arsteady",
		subsystem:        "tracking",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.signals = auto.NewCounterVec(m.counterOpts("signals_total", "Tracking signals received by kind"), []string{"signal"})
	m.transitions = auto.NewCounterVec(m.counterOpts("transitions_total", "Overlay visibility transitions by direction"), []string{"direction"})
	m.visibleTargets = auto.NewGauge(m.gaugeOpts("visible_targets", "Number of targets whose overlay is currently shown"))
	m.targetConfidence = auto.NewGaugeVec(m.gaugeOpts("target_confidence", "Current tracking confidence per target"), []string{"target"})
	m.smoothingCorrection = auto.NewHistogram(m.histogramOpts(
		"smoothing_correction_distance",
		"Distance between raw and smoothed position per pose update",
		[]float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	))
	m.missingEntities = auto.NewCounter(m.counterOpts("missing_entity_total", "Render calls skipped because the target entity is not mounted"))
	m.rendererErrors = auto.NewCounter(m.counterOpts("renderer_errors_total", "Render calls that failed for reasons other than a missing entity"))
	m.clicks = auto.NewCounterVec(m.counterOpts("clicks_total", "Overlay clicks by outcome"), []string{"outcome"})

	m.framesIngested = auto.NewCounter(m.counterOpts("frames_ingested_total", "Frames accepted for dispatch"))
	m.framesDuplicate = auto.NewCounter(m.counterOpts("frames_duplicate_total", "Frames rejected as duplicate deliveries"))
	m.framesDropped = auto.NewCounterVec(m.counterOpts("frames_dropped_total", "Frames dropped before reaching the gate"), []string{"reason"})
	m.frameLatency = auto.NewHistogram(m.histogramOpts("frame_dispatch_latency_milliseconds", "Time spent applying one frame", m.histogramBuckets))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Frames waiting in the dispatch queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum dispatch queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Frames enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Frames dequeued"))
	m.queueEnqueueErrors = auto.NewCounterVec(m.counterOpts("queue_enqueue_errors_total", "Failed enqueues by reason"), []string{"reason"})

	m.streamClients = auto.NewGauge(m.gaugeOpts("stream_clients", "Connected scene stream clients"))
	m.streamMessages = auto.NewCounter(m.counterOpts("stream_messages_total", "Scene commands broadcast"))
	m.streamDropped = auto.NewCounter(m.counterOpts("stream_dropped_clients_total", "Scene stream clients dropped for falling behind"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(m.counterOpts("http_errors_total", "HTTP errors by endpoint and type"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// Tracking.

func (m *Manager) RecordSignal(signal string)          { m.signals.WithLabelValues(signal).Inc() }
func (m *Manager) RecordTransition(direction string)   { m.transitions.WithLabelValues(direction).Inc() }
func (m *Manager) UpdateVisibleTargets(n int)          { m.visibleTargets.Set(float64(n)) }
func (m *Manager) RecordSmoothingCorrection(d float64) { m.smoothingCorrection.Observe(d) }
func (m *Manager) RecordMissingEntity()                { m.missingEntities.Inc() }
func (m *Manager) RecordRendererError()                { m.rendererErrors.Inc() }
func (m *Manager) RecordClick(outcome string)          { m.clicks.WithLabelValues(outcome).Inc() }

func (m *Manager) UpdateTargetConfidence(target string, confidence float64) {
	m.targetConfidence.WithLabelValues(target).Set(confidence)
}

// Ingestion.

func (m *Manager) RecordFrameIngested()             { m.framesIngested.Inc() }
func (m *Manager) RecordFrameDuplicate()            { m.framesDuplicate.Inc() }
func (m *Manager) RecordFrameDropped(reason string) { m.framesDropped.WithLabelValues(reason).Inc() }
func (m *Manager) RecordFrameLatency(ms float64)    { m.frameLatency.Observe(ms) }

// Queue.

func (m *Manager) UpdateQueueSize(size int)               { m.queueSize.Set(float64(size)) }
func (m *Manager) UpdateQueueCapacity(capacity int)       { m.queueCapacity.Set(float64(capacity)) }
func (m *Manager) RecordQueueEnqueue()                    { m.queueEnqueued.Inc() }
func (m *Manager) RecordQueueDequeue()                    { m.queueDequeued.Inc() }
func (m *Manager) RecordQueueEnqueueError(reason string) { m.queueEnqueueErrors.WithLabelValues(reason).Inc() }

// Scene stream.

func (m *Manager) UpdateStreamClients(n int)  { m.streamClients.Set(float64(n)) }
func (m *Manager) RecordStreamMessage()       { m.streamMessages.Inc() }
func (m *Manager) RecordStreamClientDropped() { m.streamDropped.Inc() }

// HTTP.

func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func (m *Manager) RecordHTTPError(endpoint, method, errorType string) {
	m.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

func (m *Manager) UpdateSystemMemoryUsage(bytes uint64)  { m.systemMemoryUsage.Set(float64(bytes)) }
func (m *Manager) UpdateSystemGoroutineCount(count int)  { m.systemGoroutineCount.Set(float64(count)) }
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) { m.systemGCPauseTime.Observe(pauseMs) }

// Package-level helpers write to the global manager.

// RecordSignal counts a found/lost signal.
func RecordSignal(signal string) { globalManager.RecordSignal(signal) }

// RecordTransition counts a show/hide transition.
func RecordTransition(direction string) { globalManager.RecordTransition(direction) }

// UpdateVisibleTargets sets the number of visible overlays.
func UpdateVisibleTargets(n int) { globalManager.UpdateVisibleTargets(n) }

// UpdateTargetConfidence sets the confidence gauge for one target.
func UpdateTargetConfidence(target string, confidence float64) {
	globalManager.UpdateTargetConfidence(target, confidence)
}

// RecordSmoothingCorrection observes how far smoothing moved a raw position.
func RecordSmoothingCorrection(distance float64) { globalManager.RecordSmoothingCorrection(distance) }

// RecordMissingEntity counts a render call against an unmounted entity.
func RecordMissingEntity() { globalManager.RecordMissingEntity() }

// RecordRendererError counts a failed render call.
func RecordRendererError() { globalManager.RecordRendererError() }

// RecordClick counts an overlay click by outcome (accepted, ignored).
func RecordClick(outcome string) { globalManager.RecordClick(outcome) }

// RecordFrameIngested counts an accepted frame.
func RecordFrameIngested() { globalManager.RecordFrameIngested() }

// RecordFrameDuplicate counts a duplicate frame delivery.
func RecordFrameDuplicate() { globalManager.RecordFrameDuplicate() }

// RecordFrameDropped counts a dropped frame by reason.
func RecordFrameDropped(reason string) { globalManager.RecordFrameDropped(reason) }

// RecordFrameLatency observes frame dispatch latency in milliseconds.
func RecordFrameLatency(ms float64) { globalManager.RecordFrameLatency(ms) }

// UpdateQueueSize sets the dispatch queue length.
func UpdateQueueSize(size int) { globalManager.UpdateQueueSize(size) }

// UpdateQueueCapacity sets the dispatch queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.UpdateQueueCapacity(capacity) }

// RecordQueueEnqueue counts an enqueue.
func RecordQueueEnqueue() { globalManager.RecordQueueEnqueue() }

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() { globalManager.RecordQueueDequeue() }

// RecordQueueEnqueueError counts a failed enqueue.
func RecordQueueEnqueueError(reason string) { globalManager.RecordQueueEnqueueError(reason) }

// UpdateStreamClients sets the number of connected stream clients.
func UpdateStreamClients(n int) { globalManager.UpdateStreamClients(n) }

// RecordStreamMessage counts a broadcast scene command.
func RecordStreamMessage() { globalManager.RecordStreamMessage() }

// RecordStreamClientDropped counts a stream client dropped for back-pressure.
func RecordStreamClientDropped() { globalManager.RecordStreamClientDropped() }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.RecordHTTPError(endpoint, method, errorType)
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime observes average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
