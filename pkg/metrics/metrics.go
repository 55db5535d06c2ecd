package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	TaskClassifiedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_classified_count",
			Help: "Total number of maintenance task classifications",
		},
		[]string{"status"}, // status: overdue, today, upcoming, normal
	)

	DigestBuiltCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_built_count",
			Help: "Total number of per-user digests assembled",
		},
	)

	DigestSendCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_send_count",
			Help: "Total number of digest send attempts",
		},
		[]string{"result"}, // result: success, failed, skipped
	)

	InvoiceIssuedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invoice_issued_count",
			Help: "Total number of invoices issued",
		},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)
)

// RecordHTTPRequestDuration records one served HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records one database query.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementTaskClassified counts one classification by resulting status.
func IncrementTaskClassified(status string) {
	TaskClassifiedCount.WithLabelValues(status).Inc()
}

// IncrementDigestSend counts one digest send attempt by result.
func IncrementDigestSend(result string) {
	DigestSendCount.WithLabelValues(result).Inc()
}

// RecordMQConsumeLatency records one consumed MQ message.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}
