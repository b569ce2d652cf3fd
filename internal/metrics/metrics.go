// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "table_order"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders persisted, by store.",
		},
		[]string{"store_id"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_changes_total",
			Help:      "Order status changes, by target status.",
		},
		[]string{"status"},
	)

	sessionsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "opened_total",
			Help:      "Table sessions opened.",
		},
	)

	sessionsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "ended_total",
			Help:      "Table sessions ended, by reason.",
		},
		[]string{"reason"},
	)

	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Connected realtime subscribers.",
		},
	)

	deliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "delivery_failures_total",
			Help:      "Events that could not be handed to a subscriber.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		ordersCreated,
		statusChanges,
		sessionsOpened,
		sessionsEnded,
		subscribers,
		deliveryFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, path string, status int, seconds float64) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(seconds)
}

// OrderCreated counts a persisted order.
func OrderCreated(storeID uint64) {
	ordersCreated.WithLabelValues(strconv.FormatUint(storeID, 10)).Inc()
}

// StatusChanged counts a status change to status.
func StatusChanged(status string) { statusChanges.WithLabelValues(status).Inc() }

// SessionOpened counts a new table session.
func SessionOpened() { sessionsOpened.Inc() }

// SessionsEnded counts n sessions ended for reason.
func SessionsEnded(reason string, n int) {
	if n > 0 {
		sessionsEnded.WithLabelValues(reason).Add(float64(n))
	}
}

// SubscriberAdded and SubscriberRemoved track the realtime gauge.
func SubscriberAdded()   { subscribers.Inc() }
func SubscriberRemoved() { subscribers.Dec() }

// DeliveryFailed counts a dropped realtime delivery.
func DeliveryFailed() { deliveryFailures.Inc() }
