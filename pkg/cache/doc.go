// Package cache provides the fingerprint store used by the validation
// middleware: a bounded, concurrency-safe mapping from cache key to the
// entity tag last computed for that key.
//
// The store is deliberately small in contract:
//
//   - Get returns the live entry for a key, treating expired entries as
//     absent and removing them on the spot (lazy expiry, no background
//     sweep).
//   - Put inserts or replaces the entry for a key and never fails.
//
// # Default store
//
//	store, err := cache.NewLRU(1024, 10*time.Minute)
//	if err != nil {
//		return err
//	}
//	entry, ok := store.Get("GET /styles.css")
//
// The default store is a fixed-capacity LRU: when full, inserting a new
// key evicts the least-recently-used entry. Recency is refreshed by both
// Get and Put. Memory is bounded strictly by capacity regardless of TTL;
// the TTL only decides whether a present entry is still valid.
//
// # Keys
//
// Cache keys are derived from requests by a Keyer. The default keys a
// request by method plus target (path and query), case-sensitive:
//
//	key := cache.DefaultKeyer{}.Key(req) // "GET /assets/app.js?v=3"
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - etagcache_store_hits_total
//   - etagcache_store_misses_total
//   - etagcache_store_evictions_total
//   - etagcache_store_expirations_total
package cache
