package evaluator

import "github.com/prometheus/client_golang/prometheus"

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quiz_app",
			Subsystem: "evaluator",
			Name:      "test_case_executions_total",
			Help:      "Test case executions by verdict.",
		},
		[]string{"verdict", "language"},
	)
	evaluationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quiz_app",
			Subsystem: "evaluator",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time to evaluate one challenge.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"language"},
	)
)

func init() {
	prometheus.MustRegister(
		executionsTotal,
		evaluationDurationSeconds,
	)
}
