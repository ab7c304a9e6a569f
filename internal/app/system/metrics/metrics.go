// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	notificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarhub",
			Subsystem: "realtime",
			Name:      "notifications_total",
			Help:      "Notification records written, by category.",
		},
		[]string{"category"},
	)

	notificationWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarhub",
			Subsystem: "realtime",
			Name:      "notification_write_failures_total",
			Help:      "Notification record writes that failed, by category.",
		},
		[]string{"category"},
	)

	baselineSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarhub",
			Subsystem: "realtime",
			Name:      "baseline_changes_suppressed_total",
			Help:      "Changes ignored because they arrived in a baseline snapshot.",
		},
		[]string{"category"},
	)

	activeSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "solarhub",
			Subsystem: "realtime",
			Name:      "active_subscriptions",
			Help:      "Live queries currently open, by category.",
		},
		[]string{"category"},
	)

	roleResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarhub",
			Subsystem: "realtime",
			Name:      "role_resolutions_total",
			Help:      "Role lookups by outcome (role name, unknown, error).",
		},
		[]string{"result"},
	)

	alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solarhub",
			Subsystem: "alerts",
			Name:      "alerts_total",
			Help:      "Ephemeral alerts by outcome (sent, throttled, overflow, closed, publish_error).",
		},
		[]string{"outcome"},
	)

	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "solarhub",
			Subsystem: "alerts",
			Name:      "connections",
			Help:      "Open realtime websocket connections.",
		},
	)
)

func init() {
	Registry.MustRegister(
		notificationsDispatched,
		notificationWriteFailures,
		baselineSuppressed,
		activeSubscriptions,
		roleResolutions,
		alerts,
		connections,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordNotification counts a written notification record.
func RecordNotification(category string) {
	notificationsDispatched.WithLabelValues(category).Inc()
}

// RecordWriteFailure counts a notification record that could not be written.
func RecordWriteFailure(category string) {
	notificationWriteFailures.WithLabelValues(category).Inc()
}

// RecordBaselineSuppressed counts n changes dropped as baseline.
func RecordBaselineSuppressed(category string, n int) {
	if n <= 0 {
		return
	}
	baselineSuppressed.WithLabelValues(category).Add(float64(n))
}

// SubscriptionOpened and SubscriptionClosed track live queries per category.
func SubscriptionOpened(category string) { activeSubscriptions.WithLabelValues(category).Inc() }

// SubscriptionClosed is the counterpart of SubscriptionOpened.
func SubscriptionClosed(category string) { activeSubscriptions.WithLabelValues(category).Dec() }

// RecordRoleResolution counts a role lookup outcome.
func RecordRoleResolution(result string) {
	if result == "" {
		result = "unknown"
	}
	roleResolutions.WithLabelValues(result).Inc()
}

// RecordAlert counts an alert outcome.
func RecordAlert(outcome string) {
	alerts.WithLabelValues(outcome).Inc()
}

// ConnectionOpened and ConnectionClosed track websocket connections.
func ConnectionOpened() { connections.Inc() }

// ConnectionClosed is the counterpart of ConnectionOpened.
func ConnectionClosed() { connections.Dec() }
