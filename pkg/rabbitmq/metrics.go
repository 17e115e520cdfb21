package rabbitmq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_deliveries_total",
			Help: "Deliveries handled by consumers, by final disposition.",
		},
		[]string{"queue", "outcome"},
	)

	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_published_total",
			Help: "Messages confirmed by the broker.",
		},
		[]string{"routing_key"},
	)

	reconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rabbitmq_reconnects_total",
			Help: "Connections re-established after a loss.",
		},
	)
)
