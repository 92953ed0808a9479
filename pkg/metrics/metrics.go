package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ consume latency (milliseconds)
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// Database query latency (seconds)
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Task mutation counter
	TaskMutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_mutation_count",
			Help: "Total number of task mutations",
		},
		[]string{"operation"}, // operation: insert, update, delete, toggle
	)

	// OTP request counter
	OTPRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_request_count",
			Help: "Total number of OTP send/verify requests",
		},
		[]string{"operation", "result"},
	)

	// Web Push delivery counter
	PushSendCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_send_count",
			Help: "Total number of Web Push deliveries",
		},
		[]string{"status"}, // status: fulfilled, rejected, gone
	)

	// MQ publish counter
	MQPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_publish_count",
			Help: "Total number of events published to the exchange",
		},
		[]string{"routing_key", "result"},
	)
)

// RecordMQConsumeLatency records MQ consumption latency.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration records database query latency.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementTaskMutation increments the task mutation counter.
func IncrementTaskMutation(operation string) {
	TaskMutationCount.WithLabelValues(operation).Inc()
}

// IncrementOTPRequest increments the OTP request counter.
func IncrementOTPRequest(operation, result string) {
	OTPRequestCount.WithLabelValues(operation, result).Inc()
}

// IncrementPushSend increments the push delivery counter.
func IncrementPushSend(status string) {
	PushSendCount.WithLabelValues(status).Inc()
}

// IncrementMQPublish increments the event publish counter.
func IncrementMQPublish(routingKey, result string) {
	MQPublishCount.WithLabelValues(routingKey, result).Inc()
}
