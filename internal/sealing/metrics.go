package sealing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sealsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealgate_seals_completed_total",
		Help: "Documents sealed and distributed successfully.",
	})
	sealsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealgate_seals_failed_total",
		Help: "Sealing jobs aborted, by failing stage.",
	}, []string{"stage"})
	sealDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sealgate_seal_duration_seconds",
		Help:    "Wall time of a full sealing job.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	grantDeliveriesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealgate_seal_grant_deliveries_skipped_total",
		Help: "Per-signer download notifications dropped after a grant or publish failure.",
	})
)
