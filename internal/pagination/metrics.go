package pagination

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apirun_pagination_runs_total",
			Help: "Pagination runs by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	iterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apirun_pagination_iterations_total",
			Help: "Request cycles executed by pagination runs",
		},
		[]string{"type"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apirun_pagination_run_duration_seconds",
			Help:    "Wall-clock duration of pagination runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"type"},
	)
)

func recordRun(t Type, outcome string, elapsed time.Duration) {
	runsTotal.WithLabelValues(string(t), outcome).Inc()
	runDuration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
}
