package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// storeHits tracks lookups answered by a live entry.
	storeHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_store_hits_total",
			Help: "Total number of fingerprint store hits",
		},
	)

	// storeMisses tracks lookups for absent or expired keys.
	storeMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_store_misses_total",
			Help: "Total number of fingerprint store misses",
		},
	)

	// storeEvictions tracks entries evicted by capacity pressure.
	storeEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_store_evictions_total",
			Help: "Total number of entries evicted to make room",
		},
	)

	// storeExpirations tracks entries dropped by a lookup that found
	// them past their TTL.
	storeExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_store_expirations_total",
			Help: "Total number of entries expired on lookup",
		},
	)
)
