package cache

import (
	"time"

	"github.com/hashgate/etagcache/pkg/etag"
)

// Entry is one cached fingerprint. Entries are immutable after creation;
// the store replaces them wholesale on update, never mutates in place.
type Entry struct {
	// ETag is the content fingerprint computed for the key's last body.
	ETag etag.ETag

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time
}

// Expired reports whether the entry's age exceeds ttl at now.
// A non-positive ttl means entries never expire by time.
func (e Entry) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) >= ttl
}
