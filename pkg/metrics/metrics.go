// Package metrics provides the centralized Prometheus registry for the
// dashboard API. All metrics are defined in their respective packages
// (cache, ratelimit, coalesce, platform, proxy) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the dashboard API.
// All metrics are automatically registered via promauto in their respective
// packages and exposed at /metrics.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects from Registry; the /metrics endpoint serves it.
var Gatherer = prometheus.DefaultGatherer

// Metrics Documentation
//
// Pipeline Metrics (internal/proxy):
//   - dashboard_pipeline_requests_total{platform, source} (Counter): Requests by platform and cache source (HIT, HIT_KV, MISS, SHARED, STALE)
//
// Upstream Metrics (internal/platform):
//   - dashboard_upstream_requests_total{platform, status} (Counter): Upstream requests by platform and HTTP status
//   - dashboard_upstream_request_duration_seconds{platform} (Histogram): Upstream request duration by platform
//   - dashboard_upstream_errors_total{platform, code} (Counter): Upstream errors by platform and typed error code
//
// Cache Metrics (pkg/cache):
//   - dashboard_cache_hits_total{tier} (Counter): Cache hits by tier (memory, remote)
//   - dashboard_cache_misses_total (Counter): Cache misses across both tiers
//   - dashboard_cache_entries (Gauge): Current memory-tier entry count
//   - dashboard_cache_errors_total{operation} (Counter): Remote cache errors by operation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - dashboard_ratelimit_allowed_total{namespace} (Counter): Requests allowed by namespace
//   - dashboard_ratelimit_rejected_total{namespace} (Counter): Requests rejected by namespace
//
// Coalescing Metrics (pkg/coalesce):
//   - dashboard_coalesce_fetches_total (Counter): Upstream fetches actually started
//   - dashboard_coalesce_shared_total (Counter): Callers that joined an existing flight
//
// Example Prometheus Queries:
//
//   # Cache hit rate
//   sum(rate(dashboard_cache_hits_total[5m])) /
//   (sum(rate(dashboard_cache_hits_total[5m])) + sum(rate(dashboard_cache_misses_total[5m])))
//
//   # Stale-serve rate per platform
//   rate(dashboard_pipeline_requests_total{source="STALE"}[5m])
//
//   # Coalescing effectiveness
//   rate(dashboard_coalesce_shared_total[5m]) / rate(dashboard_coalesce_fetches_total[5m])
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(dashboard_upstream_request_duration_seconds_bucket[5m]))
