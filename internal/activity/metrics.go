package activity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions is the number of live tab sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "focusfuel",
			Subsystem: "activity",
			Name:      "active_sessions",
			Help:      "Number of live tab sessions",
		},
	)

	// SweepDuration tracks how long collecting sweep snapshots takes.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "focusfuel",
			Subsystem: "activity",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of periodic sweep snapshot collection in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)

	// SweepSubmitted counts snapshots submitted for classification by sweeps.
	SweepSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "focusfuel",
			Subsystem: "activity",
			Name:      "sweep_submitted_total",
			Help:      "Total snapshots submitted for classification by periodic sweeps",
		},
	)

	// StaleDiscarded counts results dropped because their session ended.
	StaleDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "focusfuel",
			Subsystem: "activity",
			Name:      "stale_deliveries_discarded_total",
			Help:      "Total classification results discarded because the tab session was closed or reset",
		},
	)
)
