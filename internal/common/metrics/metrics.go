// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FanoutRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_runs_total",
			Help: "Total number of fan-out runs by outcome",
		},
		[]string{"outcome"},
	)

	FanoutRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "fanout_run_duration_seconds",
			Help: "Duration of a full fan-out run in seconds",
		},
	)

	BatchesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_batches_dispatched_total",
			Help: "Total number of dispatch batches by outcome",
		},
		[]string{"outcome"},
	)

	RecipientsNotified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_recipients_notified_total",
			Help: "Total number of recipients included in successful batches",
		},
	)

	TokensInvalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_tokens_invalidated_total",
			Help: "Total number of push tokens removed after provider-reported invalidity",
		},
	)

	WeatherFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_fetches_total",
			Help: "Total number of weather provider fetches by outcome",
		},
		[]string{"outcome"},
	)
)
