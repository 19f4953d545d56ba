// Package metrics exposes the Prometheus registry shared by all promptdeck packages.
// Collectors are defined next to the code they measure (pagination, store,
// server, client, cache, ratelimit) and registered there through promauto.
//
// This package provides the scrape handler and documents every metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is where promauto registers collectors.
	Registry = prometheus.DefaultRegisterer

	// Gatherer is what Handler serves.
	Gatherer = prometheus.DefaultGatherer
)

// Handler returns the /metrics handler for Gatherer.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Pagination (pkg/pagination):
//   - pager_fetches_total{kind, direction, outcome} (Counter): Page fetches (ok, error, stale)
//   - pager_fetch_duration_seconds{kind, direction} (Histogram): Fetch duration
//   - pager_cache_steps_total{kind, direction} (Counter): Navigations served from cached pages
//   - pager_busy_rejections_total{kind} (Counter): Navigations refused while a fetch was in flight
//   - pager_invalidations_total{kind} (Counter): Partitions cleared by invalidation
//
// Store (pkg/store):
//   - promptdeck_store_queries_total{operation, outcome} (Counter)
//   - promptdeck_store_query_duration_seconds{operation} (Histogram)
//
// HTTP API (pkg/server):
//   - promptdeck_http_requests_total{route, status} (Counter): Requests by route pattern
//   - promptdeck_http_request_duration_seconds{route} (Histogram)
//   - promptdeck_http_not_modified_total{kind} (Counter): Page requests answered with 304
//
// Client (pkg/client):
//   - promptdeck_client_requests_total{operation, status} (Counter)
//   - promptdeck_client_request_duration_seconds{operation} (Histogram): Retries included
//   - promptdeck_client_errors_total{class} (Counter): transport, auth, server, validation, conflict, not_found, rate_limit
//   - promptdeck_client_retries_total{error_class} (Counter)
//   - promptdeck_client_retry_exhausted_total{error_class} (Counter)
//
// Page cache (pkg/cache):
//   - promptdeck_cache_hits_total{kind} (Counter)
//   - promptdeck_cache_misses_total{kind} (Counter)
//   - promptdeck_cache_stored_bytes_total{kind} (Counter): Bytes of page data written
//   - promptdeck_cache_304_responses_total (Counter): Revalidations answered with 304
//   - promptdeck_cache_invalidated_entries_total{kind} (Counter)
//   - promptdeck_cache_errors_total{operation} (Counter)
//
// Rate limiting (pkg/ratelimit):
//   - promptdeck_ratelimit_decisions_total{backend, outcome} (Counter): backend is local or redis
//   - promptdeck_ratelimit_backend_errors_total (Counter)
//
// Example Prometheus Queries:
//
//   # Share of navigations served without a fetch
//   sum(rate(pager_cache_steps_total[5m])) /
//   (sum(rate(pager_cache_steps_total[5m])) + sum(rate(pager_fetches_total[5m])))
//
//   # Server error rate
//   sum(rate(promptdeck_http_requests_total{status=~"5.."}[5m]))
//
//   # P95 page fetch latency
//   histogram_quantile(0.95, rate(pager_fetch_duration_seconds_bucket[5m]))
//
//   # Revalidation savings
//   rate(promptdeck_cache_304_responses_total[5m]) / rate(promptdeck_client_requests_total[5m])
