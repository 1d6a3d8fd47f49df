package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roomly"

// Outcome labels for booking operations.
const (
	OutcomeCommitted       = "committed"
	OutcomeConflict        = "conflict"
	OutcomeInvalidInterval = "invalid_interval"
	OutcomeNotFound        = "not_found"
	OutcomeInvalid         = "invalid"
	OutcomeForbidden       = "forbidden"
	OutcomeError           = "error"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	BookingOperations   *prometheus.CounterVec
	BookingDuration     *prometheus.HistogramVec
	LockWait            prometheus.Histogram
	NotificationsQueued prometheus.Counter
	NotificationsFailed prometheus.Counter

	KafkaMessages *prometheus.CounterVec
	KafkaDuration *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		BookingOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "operations_total",
			Help:      "Booking create/update/delete attempts by outcome.",
		}, []string{"operation", "outcome"}),
		BookingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "operation_duration_seconds",
			Help:      "Duration of booking operations including transaction retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "resource_lock_wait_seconds",
			Help:      "Time spent acquiring the distributed resource lock.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		NotificationsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "published_total",
			Help:      "Notification events handed to the broker after commit.",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "publish_failures_total",
			Help:      "Notification events that could not be published.",
		}),
		KafkaMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "messages_total",
			Help:      "Kafka messages by direction, topic and result.",
		}, []string{"direction", "topic", "result"}),
		KafkaDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "message_duration_seconds",
			Help:      "Time to publish or handle a Kafka message.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction", "topic"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.BookingOperations,
		m.BookingDuration,
		m.LockWait,
		m.NotificationsQueued,
		m.NotificationsFailed,
		m.KafkaMessages,
		m.KafkaDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveBooking records one booking operation and its outcome.
func (m *Metrics) ObserveBooking(operation, outcome string, started time.Time) {
	m.BookingOperations.WithLabelValues(operation, outcome).Inc()
	m.BookingDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// InstrumentHTTP counts requests and measures latency.
func (m *Metrics) InstrumentHTTP(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(m.HTTPDuration,
		promhttp.InstrumentHandlerCounter(m.HTTPRequests, next))
}

// ResultLabel maps an error to the "result" label used by the kafka series.
func ResultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
