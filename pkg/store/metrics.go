package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreQueries counts store operations by outcome.
	StoreQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_store_queries_total",
			Help: "Total store operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// StoreQueryDuration tracks store operation latency.
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptdeck_store_query_duration_seconds",
			Help:    "Store operation duration",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)
)

func observe(op string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StoreQueries.WithLabelValues(op, outcome).Inc()
}
