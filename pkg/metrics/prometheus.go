package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Every metric is named arena_core_<name>.
const (
	namespace = "arena"
	subsystem = "core"
)

// Manager manages all Prometheus metrics for the arena service.
type Manager struct {
	registry prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// Arena operations
	operations       *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec

	// Arena state
	identities      prometheus.Gauge
	challenges      *prometheus.GaugeVec
	escrowed        prometheus.Gauge
	pendingBalances prometheus.Gauge
	payouts         *prometheus.CounterVec
	withdrawals     *prometheus.CounterVec
	withdrawnAmount prometheus.Counter

	// Events
	eventsByKind  *prometheus.CounterVec
	eventsDropped prometheus.Counter
	journalWrites *prometheus.CounterVec

	// Reputation sync
	reputationSyncRuns     *prometheus.CounterVec
	reputationSyncAccounts prometheus.Counter
	reputationSyncLastUnix prometheus.Gauge

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	errorRateByComponent *prometheus.CounterVec
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
	m := &Manager{registry: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		Buckets: prometheus.DefBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		Buckets: prometheus.DefBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpRateLimited = m.counter("http_rate_limited_total",
		"Requests rejected by the per-caller rate limiter")

	m.operations = m.counterVec("operations_total",
		"Arena operations by name and outcome", "operation", "outcome")
	m.operationLatency = m.histogramVec("operation_latency_milliseconds",
		"Arena operation latency in milliseconds", "operation")

	m.identities = m.gauge("identities",
		"Number of issued identity records")
	m.challenges = m.gaugeVec("challenges",
		"Number of challenges by lifecycle state", "state")
	m.escrowed = m.gauge("escrowed_amount",
		"Sum of entry fees held by unfinalized challenges")
	m.pendingBalances = m.gauge("pending_withdrawal_amount",
		"Sum of credited balances not yet withdrawn")
	m.payouts = m.counterVec("payout_amount_total",
		"Amount credited at finalization by recipient role", "role")
	m.withdrawals = m.counterVec("withdrawals_total",
		"Withdrawal attempts by outcome", "outcome")
	m.withdrawnAmount = m.counter("withdrawn_amount_total",
		"Amount transferred out by successful withdrawals")

	m.eventsByKind = m.counterVec("events_total",
		"Events processed by kind", "kind")
	m.eventsDropped = m.counter("events_dropped_total",
		"Events dropped because the queue was full or closed")
	m.journalWrites = m.counterVec("journal_writes_total",
		"Event journal writes by outcome", "outcome")

	m.reputationSyncRuns = m.counterVec("reputation_sync_runs_total",
		"Reputation sync job runs by outcome", "outcome")
	m.reputationSyncAccounts = m.counter("reputation_sync_accounts_total",
		"Identity records refreshed by the reputation sync job")
	m.reputationSyncLastUnix = m.gauge("reputation_sync_last_unix",
		"Unix time of the last completed reputation sync")

	m.queueSize = m.gauge("queue_size",
		"Current size of the event queue")
	m.queueCapacity = m.gauge("queue_capacity",
		"Maximum capacity of the event queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio",
		"Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total",
		"Total number of events enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total",
		"Total number of events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total",
		"Total number of enqueue errors")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Queue enqueue latency in milliseconds")

	m.workerCount = m.gauge("worker_count",
		"Configured number of event workers")
	m.workerActiveCount = m.gauge("worker_active_count",
		"Number of workers currently handling an event")
	m.workerIdleCount = m.gauge("worker_idle_count",
		"Number of idle workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker event handling latency in milliseconds")
	m.workerErrorRate = m.counter("worker_errors_total",
		"Total number of worker handler errors")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

// HTTP

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	globalManager.httpRateLimited.Inc()
}

// Arena operations

// RecordOperation counts an arena operation. outcome is "ok" or an error code.
func RecordOperation(operation, outcome string, latencyMs float64) {
	globalManager.operations.WithLabelValues(operation, outcome).Inc()
	globalManager.operationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateIdentities sets the number of issued identities.
func UpdateIdentities(count int) {
	globalManager.identities.Set(float64(count))
}

// UpdateChallenges sets the number of challenges in state.
func UpdateChallenges(state string, count int) {
	globalManager.challenges.WithLabelValues(state).Set(float64(count))
}

// UpdateEscrowed sets the escrowed amount.
func UpdateEscrowed(amount int64) {
	globalManager.escrowed.Set(float64(amount))
}

// UpdatePendingBalances sets the sum of pending balances.
func UpdatePendingBalances(amount int64) {
	globalManager.pendingBalances.Set(float64(amount))
}

// RecordPayout adds amount credited to a recipient role (winner, creator).
func RecordPayout(role string, amount int64) {
	if amount > 0 {
		globalManager.payouts.WithLabelValues(role).Add(float64(amount))
	}
}

// RecordWithdrawal counts a withdrawal attempt; amount is added on success.
func RecordWithdrawal(outcome string, amount int64) {
	globalManager.withdrawals.WithLabelValues(outcome).Inc()
	if amount > 0 {
		globalManager.withdrawnAmount.Add(float64(amount))
	}
}

// Events

// RecordEvent counts a processed event by kind.
func RecordEvent(kind string) {
	globalManager.eventsByKind.WithLabelValues(kind).Inc()
}

// RecordEventDropped counts an event that never reached the queue.
func RecordEventDropped() {
	globalManager.eventsDropped.Inc()
}

// RecordJournalWrite counts a journal append by outcome.
func RecordJournalWrite(outcome string) {
	globalManager.journalWrites.WithLabelValues(outcome).Inc()
}

// Reputation sync

// RecordReputationSync records a sync job run.
func RecordReputationSync(outcome string, accounts int, unix int64) {
	globalManager.reputationSyncRuns.WithLabelValues(outcome).Inc()
	if accounts > 0 {
		globalManager.reputationSyncAccounts.Add(float64(accounts))
	}
	if outcome == "ok" {
		globalManager.reputationSyncLastUnix.Set(float64(unix))
	}
}

// Queue

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

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
