package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealgate_bus_published_total",
		Help: "Messages published to the broker, by routing key",
	}, []string{"routing_key"})

	publishDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealgate_bus_publish_dropped_total",
		Help: "Publishes dropped because the broker was unavailable",
	})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealgate_bus_reconnects_total",
		Help: "Successful broker reconnections",
	})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealgate_bus_deliveries_total",
		Help: "Deliveries dispatched to handlers, by routing key and outcome",
	}, []string{"routing_key", "outcome"})
)
