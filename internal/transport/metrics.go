package transport

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apirun_transport_requests_total",
			Help: "Dispatched requests by protocol family and outcome",
		},
		[]string{"protocol", "outcome"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apirun_transport_request_duration_seconds",
			Help:    "Duration of dispatched requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"protocol"},
	)
)

func recordDispatch(p Protocol, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		var te *TransportError
		if errors.As(err, &te) {
			outcome = string(te.Type)
		}
	}
	dispatchTotal.WithLabelValues(string(p), outcome).Inc()
	if duration > 0 {
		dispatchDuration.WithLabelValues(string(p)).Observe(duration.Seconds())
	}
}
