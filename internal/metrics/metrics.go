// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tourdesk_booking"

var (
	once sync.Once

	requestsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_created_total",
			Help:      "Count of booking requests created.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Count of committed status transitions.",
		},
		[]string{"from", "to", "actor"},
	)

	versionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Count of status updates rejected by the optimistic version check.",
		},
	)

	realtimeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_publish_failures_total",
			Help:      "Count of status updates that could not be pushed to subscribers.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of notification deliveries by event type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(requestsCreated, statusTransitions, versionConflicts, realtimeFailures, notifications)
	})
}

func IncRequestCreated() {
	requestsCreated.Inc()
}

func IncStatusTransition(from, to, actor string) {
	statusTransitions.WithLabelValues(from, to, actor).Inc()
}

func IncVersionConflict() {
	versionConflicts.Inc()
}

func IncRealtimeFailure() {
	realtimeFailures.Inc()
}

// IncNotification records a delivery outcome: "sent", "failed" or "dropped".
func IncNotification(eventType, outcome string) {
	notifications.WithLabelValues(eventType, outcome).Inc()
}
