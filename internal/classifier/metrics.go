package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClassificationsTotal counts pipeline results.
	// Labels: source (list, pattern, ai), verdict (distracting, productive)
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusfuel",
			Subsystem: "classifier",
			Name:      "classifications_total",
			Help:      "Total classifications by producing stage and verdict",
		},
		[]string{"source", "verdict"},
	)

	// AIFailuresTotal counts AI stage failures that fell back to heuristics.
	// Labels: reason (timeout, malformed, disabled, error)
	AIFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusfuel",
			Subsystem: "classifier",
			Name:      "ai_failures_total",
			Help:      "Total AI stage failures recovered by heuristic fallback",
		},
		[]string{"reason"},
	)

	// AIDuration tracks AI stage latency, including failed calls.
	AIDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "focusfuel",
			Subsystem: "classifier",
			Name:      "ai_duration_seconds",
			Help:      "Duration of AI classification calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
	)
)

func verdictLabel(distracting bool) string {
	if distracting {
		return "distracting"
	}
	return "productive"
}
