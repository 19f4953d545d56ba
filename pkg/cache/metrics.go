package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks page lookups answered from Redis
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_cache_hits_total",
			Help: "Total number of page cache hits by kind",
		},
		[]string{"kind"},
	)

	// CacheMisses tracks page lookups without a cached response
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_cache_misses_total",
			Help: "Total number of page cache misses by kind",
		},
		[]string{"kind"},
	)

	// CacheStoredBytes tracks bytes of page data written
	CacheStoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_cache_stored_bytes_total",
			Help: "Bytes of page data written to the cache by kind",
		},
		[]string{"kind"},
	)

	// ConditionalRequests tracks 304 Not Modified revalidations
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promptdeck_cache_304_responses_total",
			Help: "Total number of 304 Not Modified revalidations",
		},
	)

	// CacheInvalidations tracks entries removed by kind invalidation
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_cache_invalidated_entries_total",
			Help: "Total number of cached pages removed by invalidation",
		},
		[]string{"kind"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptdeck_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "touch", "invalidate"
	)
)
