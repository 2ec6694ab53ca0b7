// Package metrics documents the Prometheus metrics exported by the
// module and exposes the registry they live in. The metrics themselves
// are defined in their respective packages (cache, middleware) to keep
// the dependency graph flat.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registerer is where all module metrics register via promauto.
var Registerer = prometheus.DefaultRegisterer

// Gatherer serves the module metrics, e.g. via promhttp.HandlerFor.
var Gatherer = prometheus.DefaultGatherer

// Metrics Reference
//
// Store metrics (pkg/cache):
//   - etagcache_store_hits_total (Counter): Lookups answered by a live entry
//   - etagcache_store_misses_total (Counter): Lookups for absent or expired keys
//   - etagcache_store_evictions_total (Counter): Entries evicted by capacity pressure
//   - etagcache_store_expirations_total (Counter): Entries dropped past their TTL
//
// Middleware metrics (pkg/middleware):
//   - etagcache_not_modified_total (Counter): Requests short-circuited with 304
//   - etagcache_fingerprints_total (Counter): Bodies fingerprinted and recorded
//   - etagcache_unbuffered_total (Counter): Responses passed through unbuffered
//
// Example Prometheus Queries:
//
//   # Validation hit rate: how often clients revalidate successfully
//   rate(etagcache_not_modified_total[5m]) /
//   (rate(etagcache_not_modified_total[5m]) + rate(etagcache_fingerprints_total[5m]))
//
//   # Store churn
//   rate(etagcache_store_evictions_total[5m])
