package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsListed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "martd",
		Name:      "items_listed_total",
		Help:      "Number of items ever listed",
	})
	ItemsSold = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "martd",
		Name:      "items_sold_total",
		Help:      "Number of items ever sold",
	})
	OpenListings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "martd",
		Name:      "open_listings",
		Help:      "Number of currently open listings",
	})
	FeeVolume = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "martd",
		Name:      "fee_volume_total",
		Help:      "Cumulative platform fees collected, in the smallest currency unit",
	})
)
