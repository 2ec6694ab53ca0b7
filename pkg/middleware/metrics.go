package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// notModifiedTotal tracks requests answered from the store without
	// invoking the downstream.
	notModifiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_not_modified_total",
			Help: "Total number of requests short-circuited with 304 Not Modified",
		},
	)

	// bodiesFingerprinted tracks bodies whose fingerprint was computed
	// and recorded.
	bodiesFingerprinted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_fingerprints_total",
			Help: "Total number of response bodies fingerprinted",
		},
	)

	// unbufferedTotal tracks responses forwarded without a buffered
	// fingerprint: non-cacheable statuses, flushing handlers, and bodies
	// over the ceiling.
	unbufferedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_unbuffered_total",
			Help: "Total number of responses passed through unbuffered",
		},
	)
)
