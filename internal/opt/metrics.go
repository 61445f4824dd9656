package opt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// evaluations counts direct analysis calls.
	// Labels: analysis (name), status (ok, failed, error)
	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "analysisexchange",
		Subsystem: "analysis",
		Name:      "evaluations_total",
		Help:      "Direct analysis evaluations by outcome",
	}, []string{"analysis", "status"})

	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "analysisexchange",
		Subsystem: "analysis",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of direct analysis evaluations",
		Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
	}, []string{"analysis"})

	// bestMerit tracks the best penalized merit of the latest minimisation.
	bestMerit = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "analysisexchange",
		Subsystem: "optimizer",
		Name:      "best_merit",
		Help:      "Best penalized merit reached by the last run",
	}, []string{"analysis"})
)
