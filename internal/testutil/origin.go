// Package testutil provides testing utilities for the validation
// middleware: a counting stub origin and chunked body helpers.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Origin is a configurable stub downstream handler. It counts how often
// it is invoked so tests can assert that a short-circuited request never
// reached it.
type Origin struct {
	mu                sync.Mutex
	calls             int
	lastRequestHeader http.Header

	// Status and Body are what the origin answers with. Defaults: 200
	// with an empty body.
	Status int
	Body   []byte

	// Headers are extra response headers to set.
	Headers map[string]string

	// Handler, when set, overrides the canned response entirely.
	Handler http.HandlerFunc
}

// NewOrigin returns a stub origin answering 200 with body.
func NewOrigin(body string) *Origin {
	return &Origin{Status: http.StatusOK, Body: []byte(body)}
}

// ServeHTTP implements http.Handler.
func (o *Origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	o.calls++
	o.lastRequestHeader = r.Header.Clone()
	o.mu.Unlock()

	if o.Handler != nil {
		o.Handler(w, r)
		return
	}
	for k, v := range o.Headers {
		w.Header().Set(k, v)
	}
	status := o.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(o.Body) > 0 {
		w.Write(o.Body)
	}
}

// Calls returns how many requests reached the origin.
func (o *Origin) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// LastRequestHeader returns the headers of the most recent request.
func (o *Origin) LastRequestHeader() http.Header {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRequestHeader
}

// Server starts an httptest server around the origin. The caller owns
// Close.
func (o *Origin) Server() *httptest.Server {
	return httptest.NewServer(o)
}

// ChunkReader delivers its content in fixed-size chunks, one chunk per
// Read call, so tests can exercise arbitrary chunk boundaries.
type ChunkReader struct {
	rest      []byte
	chunkSize int
	closed    bool

	// Err, when set, is returned instead of io.EOF once the content is
	// exhausted, simulating a mid-stream body failure.
	Err error
}

// NewChunkReader returns a reader over content with the given chunk size.
func NewChunkReader(content []byte, chunkSize int) *ChunkReader {
	return &ChunkReader{rest: content, chunkSize: chunkSize}
}

func (c *ChunkReader) Read(p []byte) (int, error) {
	if len(c.rest) == 0 {
		if c.Err != nil {
			return 0, c.Err
		}
		return 0, io.EOF
	}
	n := c.chunkSize
	if n > len(c.rest) || n <= 0 {
		n = len(c.rest)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.rest[:n])
	c.rest = c.rest[n:]
	return n, nil
}

// Close records closure; the reader reports it via Closed.
func (c *ChunkReader) Close() error {
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *ChunkReader) Closed() bool {
	return c.closed
}
