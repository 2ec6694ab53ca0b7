// Package middleware implements ETag-based cache validation in front of
// an arbitrary downstream handler.
//
// On each request the middleware derives a cache key, parses the client's
// If-None-Match header, and consults the fingerprint store. A live entry
// matching a presented tag short-circuits the request: the downstream
// handler is never invoked and the client receives 304 Not Modified with
// the matched tag echoed. Otherwise the request is forwarded unmodified,
// the response body is digested on its way out, and the resulting
// fingerprint is recorded for future requests.
//
// Two surfaces are provided:
//
//   - Handler wraps an inner http.Handler (server position). Bodies up to
//     MaxBodyBytes are buffered so the ETag header is set before the
//     first body byte is sent; larger bodies are forwarded unbuffered and
//     uncached.
//   - Transport wraps an http.RoundTripper (client position). Bodies
//     beyond the ceiling keep streaming: the fingerprint is recorded only
//     once the caller fully drains the body, and no ETag header is
//     attached to that response.
//
// Two concurrent misses for the same key may both invoke the downstream
// and both write the store; the later write wins. No single-flight
// de-duplication is performed.
package middleware
