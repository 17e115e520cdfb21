package inbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_admitted_total",
			Help: "Inbound messages admitted and applied.",
		},
		[]string{"consumer"},
	)

	duplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_duplicates_total",
			Help: "Inbound messages skipped because their id was already recorded.",
		},
		[]string{"consumer"},
	)
)
