package middleware

import (
	"bytes"
	"net/http"

	"github.com/hashgate/etagcache/pkg/etag"
)

// bodyRecorder is the http.ResponseWriter handed to the inner handler.
// It buffers the response through a digesting tee so the fingerprint is
// known before headers reach the wire. The recorder degrades to plain
// passthrough, abandoning the digest, as soon as buffering stops being
// possible: a non-cacheable status, a body crossing the ceiling, or an
// explicit Flush by a streaming handler.
type bodyRecorder struct {
	rw http.ResponseWriter

	header      http.Header
	status      int
	wroteHeader bool

	buf         bytes.Buffer
	tee         *etag.DigestWriter
	limit       int64
	passthrough bool
}

func newBodyRecorder(rw http.ResponseWriter, digest etag.Digest, limit int64) *bodyRecorder {
	rec := &bodyRecorder{
		rw:     rw,
		header: make(http.Header),
		limit:  limit,
	}
	rec.tee = etag.NewDigestWriter(&rec.buf, digest)
	return rec
}

// Header returns a shadow header map. Headers are copied to the
// underlying writer when the response is released.
func (rec *bodyRecorder) Header() http.Header {
	return rec.header
}

func (rec *bodyRecorder) WriteHeader(status int) {
	if rec.wroteHeader {
		return
	}
	rec.wroteHeader = true
	rec.status = status
	if !cacheableStatus(status) {
		rec.release()
	}
}

func (rec *bodyRecorder) Write(p []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	if !rec.passthrough && int64(rec.buf.Len())+int64(len(p)) > rec.limit {
		rec.release()
	}
	if rec.passthrough {
		return rec.rw.Write(p)
	}
	return rec.tee.Write(p)
}

// Flush implements http.Flusher. A handler that flushes wants its bytes
// on the wire now, so buffering ends here.
func (rec *bodyRecorder) Flush() {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	if !rec.passthrough {
		rec.release()
	}
	if f, ok := rec.rw.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController.
func (rec *bodyRecorder) Unwrap() http.ResponseWriter {
	return rec.rw
}

// release emits the headers and whatever has been buffered so far to the
// underlying writer and switches to passthrough. The digest is abandoned.
func (rec *bodyRecorder) release() {
	rec.passthrough = true
	copyHeader(rec.rw.Header(), rec.header)
	rec.rw.WriteHeader(rec.status)
	if rec.buf.Len() > 0 {
		rec.rw.Write(rec.buf.Bytes())
		rec.buf.Reset()
	}
	unbufferedTotal.Inc()
}

// finish completes the response after the inner handler has returned.
// For a fully buffered body it finalizes the fingerprint, sets the ETag
// header ahead of the status line, and emits the body. ok reports whether
// the fingerprint is valid for recording: false for passthrough responses
// and failed client writes.
func (rec *bodyRecorder) finish() (etag.ETag, bool) {
	if !rec.wroteHeader {
		// Inner handler produced no output at all: an empty 200.
		rec.wroteHeader = true
		rec.status = http.StatusOK
	}
	if rec.passthrough {
		return etag.ETag{}, false
	}
	tag := rec.tee.Fingerprint()
	rec.header.Set("ETag", tag.String())
	copyHeader(rec.rw.Header(), rec.header)
	rec.rw.WriteHeader(rec.status)
	if rec.buf.Len() > 0 {
		if _, err := rec.rw.Write(rec.buf.Bytes()); err != nil {
			return etag.ETag{}, false
		}
	}
	return tag, true
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
