package sandbox

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/tombee/apirun/pkg/errors"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apirun_sandbox_evaluations_total",
			Help: "Script evaluations by tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	evaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apirun_sandbox_evaluation_duration_seconds",
			Help:    "Wall-clock duration of script evaluations",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 3, 10},
		},
		[]string{"tier"},
	)
)

func recordEvaluation(tier string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		var scriptErr *apierrors.ScriptError
		if errors.As(err, &scriptErr) {
			outcome = string(scriptErr.Reason)
		}
	}
	evaluationsTotal.WithLabelValues(tier, outcome).Inc()
	evaluationDuration.WithLabelValues(tier).Observe(duration.Seconds())
}
