package fileformat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apirun_format_detections_total",
			Help: "Payloads normalized, by detected format",
		},
		[]string{"format"},
	)

	strategyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apirun_format_strategy_failures_total",
			Help: "Strategies that claimed a payload but failed to parse it",
		},
		[]string{"format"},
	)

	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apirun_format_parse_duration_seconds",
			Help:    "Duration of successful strategy parses",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)
)

func recordDetection(format Format, duration time.Duration) {
	detectionsTotal.WithLabelValues(string(format)).Inc()
	if duration > 0 {
		parseDuration.WithLabelValues(string(format)).Observe(duration.Seconds())
	}
}

func recordFailure(format Format) {
	strategyFailuresTotal.WithLabelValues(string(format)).Inc()
}
