package session

import "github.com/prometheus/client_golang/prometheus"

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Finalization attempts by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	finalizationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_finalization_duration_seconds",
			Help:    "Time spent re-evaluating a session before its record is written.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_active_sessions",
			Help: "Sessions currently held in memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(submissionsTotal, finalizationDurationSeconds, activeSessions)
}
