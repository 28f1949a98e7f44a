package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	GatewayEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_total",
			Help: "Total number of inventory change events processed by the gateway (count)",
		},
		[]string{"kind", "result"},
	)

	GatewayProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_processing_duration_ms",
			Help:    "End-to-end processing duration per event in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"result"},
	)

	ValidationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_attempts_total",
			Help: "Total number of device credential validation attempts (count)",
		},
		[]string{"status"},
	)

	ValidationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validation_duration_ms",
			Help:    "Duration of remote device validation calls in milliseconds",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000},
		},
		[]string{"status"},
	)

	SessionRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_session_refresh_total",
			Help: "Total number of validator signin calls (count)",
		},
		[]string{"status"},
	)

	SessionInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "validator_session_invalidations_total",
			Help: "Total number of cached session invalidations (count)",
		},
	)

	ForwardDeliveryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forward_delivery_total",
			Help: "Total number of downstream delivery outcomes (count)",
		},
		[]string{"status"},
	)

	ForwardRetryTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forward_retry_total",
			Help: "Total number of downstream delivery retry attempts (count)",
		},
	)

	DecisionSinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_sink_errors_total",
			Help: "Total number of failures writing gateway decisions to a sink (count)",
		},
		[]string{"sink"},
	)

	DecisionsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_published_total",
			Help: "Total number of gateway decisions written per sink (count)",
		},
		[]string{"sink"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)
)

func RegisterGatewayMetrics() {
	prometheus.MustRegister(GatewayEventsTotal)
	prometheus.MustRegister(GatewayProcessingDuration)
	prometheus.MustRegister(ValidationAttemptsTotal)
	prometheus.MustRegister(ValidationDuration)
	prometheus.MustRegister(SessionRefreshTotal)
	prometheus.MustRegister(SessionInvalidationsTotal)
	prometheus.MustRegister(ForwardDeliveryTotal)
	prometheus.MustRegister(ForwardRetryTotal)
	prometheus.MustRegister(DecisionSinkErrorsTotal)
	prometheus.MustRegister(DecisionsPublishedTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterDatabaseMetrics() {
	prometheus.MustRegister(DatabaseQueriesTotal)
}

func ObserveGatewayDuration(duration time.Duration, result string) {
	GatewayProcessingDuration.WithLabelValues(result).Observe(float64(duration.Milliseconds()))
}

func ObserveValidationDuration(duration time.Duration, status string) {
	ValidationDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}
