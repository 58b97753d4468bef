// Package metrics exposes Prometheus collectors for the tracking core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	foodEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "health_tracker",
			Subsystem: "events",
			Name:      "log_actions_total",
			Help:      "Food event mutations by resulting log action.",
		},
		[]string{"action"},
	)

	weekRollovers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "health_tracker",
			Subsystem: "checklist",
			Name:      "rollovers_total",
			Help:      "Weekly checklists rolled into the archive.",
		},
	)

	classifierFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "health_tracker",
			Subsystem: "classifier",
			Name:      "failures_total",
			Help:      "Day-flag classifier calls that failed or timed out.",
		},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "health_tracker",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of dataset reads and writes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"op", "status"},
	)
)

func init() {
	Registry.MustRegister(foodEvents, weekRollovers, classifierFailures, backendDuration)
}

// Handler returns the /metrics handler for Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordLogAction counts one event mutation outcome.
func RecordLogAction(action string) {
	foodEvents.WithLabelValues(action).Inc()
}

// RecordRollover counts one archived week.
func RecordRollover() {
	weekRollovers.Inc()
}

// RecordClassifierFailure counts one failed classifier call.
func RecordClassifierFailure() {
	classifierFailures.Inc()
}

// ObserveBackend records the duration of a storage read or write.
func ObserveBackend(op string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	backendDuration.WithLabelValues(op, status).Observe(time.Since(started).Seconds())
}
