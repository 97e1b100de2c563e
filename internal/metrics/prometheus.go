package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Warming scheduler metrics
	WarmingCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warming_cycles_total",
			Help: "Total number of warming cycles by outcome action",
		},
		[]string{"action"},
	)

	WarmingCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warming_cycle_duration_seconds",
			Help:    "Duration of a single warming cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	WarmingActivityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warming_activity_total",
			Help: "Total number of activity log records by action",
		},
		[]string{"action"},
	)

	WarmingActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warming_active_sessions",
			Help: "Current number of running warming sessions",
		},
	)

	// Gateway metrics
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of Evolution API requests",
		},
		[]string{"operation", "status"}, // status: success, failed
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of Evolution API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	InstanceStatusChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instance_status_checks_total",
			Help: "Connectivity checks by resulting status",
		},
		[]string{"status"},
	)

	// Webhook metrics
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound gateway events by kind and result",
		},
		[]string{"event", "result"}, // result: processed, ignored, queued, failed
	)

	// RabbitMQ connection metrics
	RabbitMQConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rabbitmq_connections_active",
			Help: "Number of active RabbitMQ connections",
		},
		[]string{"status"}, // status: connected, disconnected
	)

	ActiveConsumers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webhook_consumers_active",
			Help: "Current number of webhook queue consumers",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordCycle counts a finished cycle and observes its duration.
func RecordCycle(action string, seconds float64) {
	WarmingCyclesTotal.WithLabelValues(action).Inc()
	WarmingCycleDuration.Observe(seconds)
}

func IncrementActivity(action string) {
	WarmingActivityTotal.WithLabelValues(action).Inc()
}

func UpdateActiveSessions(count float64) {
	WarmingActiveSessions.Set(count)
}

// RecordGatewayRequest records the outcome and latency of one gateway call.
func RecordGatewayRequest(operation string, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "failed"
	}
	GatewayRequestsTotal.WithLabelValues(operation, status).Inc()
	GatewayRequestDuration.WithLabelValues(operation).Observe(seconds)
}

func IncrementStatusChecks(status string) {
	InstanceStatusChecks.WithLabelValues(status).Inc()
}

func IncrementWebhookEvents(event, result string) {
	WebhookEventsTotal.WithLabelValues(event, result).Inc()
}

// UpdateRabbitMQConnections updates RabbitMQ connection status
func UpdateRabbitMQConnections(status string, count float64) {
	RabbitMQConnections.WithLabelValues(status).Set(count)
}

func UpdateActiveConsumers(count float64) {
	ActiveConsumers.Set(count)
}

// IncrementAPIRequests increments API request counter
func IncrementAPIRequests(method, endpoint, statusCode string) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}

// RecordAPIRequestDuration records API request duration
func RecordAPIRequestDuration(method, endpoint string, duration float64) {
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}
