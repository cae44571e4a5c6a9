package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts delivered events.
	// Labels: type (distraction, productive)
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusfuel",
			Subsystem: "sink",
			Name:      "events_total",
			Help:      "Total distraction events delivered to sinks",
		},
		[]string{"type"},
	)

	// NotificationsTotal counts notification decisions.
	// Labels: result (sent, suppressed)
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusfuel",
			Subsystem: "sink",
			Name:      "notifications_total",
			Help:      "Total distraction notifications sent or suppressed by the per-tab cooldown",
		},
		[]string{"result"},
	)

	// PublishErrors counts failed NATS publishes.
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "focusfuel",
			Subsystem: "sink",
			Name:      "publish_errors_total",
			Help:      "Total failed event or notification publishes",
		},
	)
)
