package cache

import (
	"errors"

	"github.com/hashgate/etagcache/pkg/etag"
)

// ErrInvalidCapacity indicates a non-positive store capacity. Capacity
// misuse is rejected at construction time, never at request time.
var ErrInvalidCapacity = errors.New("cache: capacity must be positive")

// Store maps cache keys to fingerprint entries.
//
// Contract:
//   - Concurrency: implementations are shared across all in-flight
//     requests and must be safe under arbitrary interleaving.
//   - Latency: both operations complete without suspension, so they carry
//     no context. Internal locking must cover only the map mutation.
//   - Get returns ok == false for absent or expired keys; an expired
//     entry observed during lookup is removed then, not resurrected.
//   - Put inserts or replaces the entry for key with the current
//     timestamp and never fails. Concurrent puts for one key are
//     last-write-wins.
type Store interface {
	Get(key string) (Entry, bool)
	Put(key string, tag etag.ETag)
}
