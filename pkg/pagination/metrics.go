package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagerFetches counts fetches by kind, direction and outcome
	// ("ok", "error", "stale").
	PagerFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_fetches_total",
			Help: "Total number of page fetches issued by pagination controllers",
		},
		[]string{"kind", "direction", "outcome"},
	)

	// PagerFetchDuration tracks fetch latency.
	PagerFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pager_fetch_duration_seconds",
			Help:    "Page fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"kind", "direction"},
	)

	// PagerSteps counts navigations served from the page window.
	PagerSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_cache_steps_total",
			Help: "Total number of navigations served from cached pages",
		},
		[]string{"kind", "direction"},
	)

	// PagerBusy counts navigations rejected while a fetch was in flight.
	PagerBusy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_busy_rejections_total",
			Help: "Total number of navigations rejected because a fetch was in flight",
		},
		[]string{"kind"},
	)

	// PagerInvalidations counts partition invalidations.
	PagerInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_invalidations_total",
			Help: "Total number of partitions cleared by invalidation",
		},
		[]string{"kind"},
	)
)
