package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Outbox events published and marked.",
		},
		[]string{"relay"},
	)

	publishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_failures_total",
			Help: "Outbox publish attempts that failed and were left for the next cycle.",
		},
		[]string{"relay"},
	)

	cycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbox_cycle_duration_seconds",
			Help:    "Duration of one relay cycle.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"relay"},
	)
)
