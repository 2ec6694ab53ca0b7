package cache

import (
	"net/http"
)

// Keyer derives a cache key from a request.
//
// Implementations must be total and deterministic: derivation never
// fails, and identical request metadata always yields the identical key.
// Requests that may legitimately receive different content must produce
// distinct keys.
type Keyer interface {
	Key(r *http.Request) string
}

// DefaultKeyer keys a request by method and target (path plus query),
// case-sensitive and exact.
//
// Example: "GET /v1/markets/orders?page=2"
type DefaultKeyer struct{}

func (DefaultKeyer) Key(r *http.Request) string {
	return r.Method + " " + r.URL.RequestURI()
}
