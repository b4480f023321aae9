// Package metrics provides Prometheus metrics for the trainage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// confidenceBuckets spans the clamped confidence range [0.1, 0.95].
var confidenceBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95} //nolint:gochecknoglobals // fixed bucket layout

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Classification
	auditsTotal        *prometheus.CounterVec
	auditLatency       prometheus.Histogram
	signalsRecorded    *prometheus.CounterVec
	reclassifications  *prometheus.CounterVec
	confidenceScore    prometheus.Histogram
	baseClassification *prometheus.CounterVec
	trackedUsers       prometheus.Gauge
	eventsDuplicate    prometheus.Counter

	// Store
	storeRetries *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trainage",
		subsystem:        "classifier",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.auditsTotal = m.counterVec("audits_total", "Audit runs by outcome", "outcome", "trigger")
	m.auditLatency = m.histogram("audit_latency_milliseconds", "Audit run latency in milliseconds", m.histogramBuckets)
	m.signalsRecorded = m.counterVec("signals_recorded_total", "Behavioral signals recorded", "signal_type", "indicator")
	m.reclassifications = m.counterVec("reclassifications_total", "Tier changes applied", "from", "to", "trigger")
	m.confidenceScore = m.histogram("confidence_score", "Confidence scores produced by evaluations", confidenceBuckets)
	m.baseClassification = m.counterVec("base_classifications_total", "Base classifications by resulting tier", "tier", "trigger")
	m.trackedUsers = m.gauge("tracked_users", "Users known to the profile store")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Duplicate workout events dropped")

	m.storeRetries = m.counterVec("store_retries_total", "Retried store writes", "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Store writes that failed after retries", "operation")

	m.queueSize = m.gauge("queue_size", "Audit triggers waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Audit trigger queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Audit triggers enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Audit triggers dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Audit triggers rejected by the queue")
	m.workerCount = m.gauge("worker_count", "Audit workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker trigger handling latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Worker trigger handling failures")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total", Help: "HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordAudit counts a finished audit run.
func RecordAudit(outcome, trigger string) {
	globalManager.auditsTotal.WithLabelValues(outcome, trigger).Inc()
}

// RecordAuditLatency records audit latency in milliseconds.
func RecordAuditLatency(latencyMs float64) {
	globalManager.auditLatency.Observe(latencyMs)
}

// RecordSignal counts a recorded behavioral signal.
func RecordSignal(signalType, indicator string) {
	globalManager.signalsRecorded.WithLabelValues(signalType, indicator).Inc()
}

// RecordReclassification counts an applied tier change.
func RecordReclassification(from, to, trigger string) {
	globalManager.reclassifications.WithLabelValues(from, to, trigger).Inc()
}

// ObserveConfidence records an evaluated confidence score.
func ObserveConfidence(score float64) {
	globalManager.confidenceScore.Observe(score)
}

// RecordBaseClassification counts a first-time classification.
func RecordBaseClassification(tier, trigger string) {
	globalManager.baseClassification.WithLabelValues(tier, trigger).Inc()
}

// UpdateTrackedUsers sets the number of known users.
func UpdateTrackedUsers(count int) {
	globalManager.trackedUsers.Set(float64(count))
}

// RecordEventDuplicate counts a dropped duplicate workout event.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordStoreRetry counts a retried store write.
func RecordStoreRetry(operation string) {
	globalManager.storeRetries.WithLabelValues(operation).Inc()
}

// RecordStoreError counts a store write that exhausted its retries.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted trigger.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a delivered trigger.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected trigger.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records trigger handling latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed trigger.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
