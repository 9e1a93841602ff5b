package leaderboard

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_leaderboard_cache_hits_total",
		Help: "Leaderboard reads served from Redis.",
	})
	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_leaderboard_cache_misses_total",
		Help: "Leaderboard reads recomputed from submissions.",
	})
)

func init() {
	prometheus.MustRegister(cacheHitsTotal, cacheMissesTotal)
}
