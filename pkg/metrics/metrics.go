// Package metrics provides the Prometheus registry and /metrics handler for meli-trends.
// Domain metrics are defined in their respective packages (cache, meli, ratelimit,
// enrich, pager) to keep packages independent; HTTP server metrics live here.
//
// This package also documents every metric the service exposes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// HTTP server metrics.
var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meli_http_requests_total",
		Help: "Total HTTP requests served by route pattern, method and status",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meli_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler returns the /metrics handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Block Tracker Metrics (pkg/ratelimit):
//   - meli_upstream_blocked (Gauge): 1 while upstream requests are suspended
//   - meli_upstream_blocks_total (Counter): CloudFront 403 / exhausted 429 responses recorded
//   - meli_upstream_rejections_total (Counter): Requests rejected locally during a cooldown
//
// Cache Metrics (pkg/cache):
//   - meli_cache_hits_total{layer} (Counter): Hits by layer ("redis", "memory")
//   - meli_cache_misses_total{layer} (Counter): Misses by layer
//   - meli_cache_writes_total (Counter): Snapshot writes
//   - meli_cache_payload_bytes (Gauge): Size of the last snapshot read or written
//   - meli_cache_errors_total{operation} (Counter): Redis errors by operation
//
// Upstream Request Metrics (pkg/meli):
//   - meli_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - meli_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - meli_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, blocked)
//   - meli_retries_total{error_class} (Counter): Retry attempts by error class
//   - meli_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - meli_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Enrichment Metrics (pkg/enrich):
//   - meli_enrich_keywords_total{result} (Counter): Keywords enriched, failed or skipped
//
// Fetch Controller Metrics (pkg/pager):
//   - meli_pager_fetches_total{result} (Counter): Page fetches by result
//
// HTTP Server Metrics (pkg/metrics):
//   - meli_http_requests_total{route, method, status} (Counter)
//   - meli_http_request_duration_seconds{route} (Histogram)
//
// Example Prometheus Queries:
//
//   # Snapshot Hit Rate
//   sum(rate(meli_cache_hits_total{layer="redis"}[5m])) /
//   (sum(rate(meli_cache_hits_total{layer="redis"}[5m])) + sum(rate(meli_cache_misses_total{layer="redis"}[5m])))
//
//   # Currently Blocked by CloudFront
//   meli_upstream_blocked == 1
//
//   # Upstream Error Rate by Class
//   sum by (class) (rate(meli_errors_total[5m]))
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(meli_request_duration_seconds_bucket[5m]))
