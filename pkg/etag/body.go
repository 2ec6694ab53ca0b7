package etag

import (
	"io"
)

// DigestReader wraps a streaming body, forwarding every chunk to its
// consumer unchanged while feeding the bytes into a digest accumulator.
// When the stream ends cleanly the finished fingerprint is delivered once
// through the completion callback. A body that errors mid-stream or is
// closed before EOF never completes: the partial digest is discarded.
type DigestReader struct {
	body       io.ReadCloser
	digest     Digest
	onComplete func(ETag)
	done       bool
}

// NewDigestReader wraps body. onComplete may be nil; otherwise it is
// invoked exactly once, with the finished fingerprint, when the body
// reaches EOF.
func NewDigestReader(body io.ReadCloser, digest Digest, onComplete func(ETag)) *DigestReader {
	return &DigestReader{body: body, digest: digest, onComplete: onComplete}
}

// Read forwards the next chunk from the underlying body. Chunk boundaries
// and errors pass through untouched.
func (r *DigestReader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)
	if n > 0 && !r.done {
		r.digest.Write(p[:n])
	}
	if err != nil && !r.done {
		r.done = true
		if err == io.EOF && r.onComplete != nil {
			r.onComplete(r.digest.Fingerprint())
		}
	}
	return n, err
}

// Fingerprint returns the finished tag. ok is false until the stream has
// reached a clean EOF.
func (r *DigestReader) Fingerprint() (ETag, bool) {
	if !r.done {
		return ETag{}, false
	}
	return r.digest.Fingerprint(), true
}

// Close closes the underlying body. Closing before EOF abandons the
// digest without firing the completion callback.
func (r *DigestReader) Close() error {
	return r.body.Close()
}

// DigestWriter tees written chunks into a digest accumulator on their way
// to the underlying writer. A downstream write error propagates to the
// producer but does not disturb the accumulator: the digest always covers
// the bytes as produced.
type DigestWriter struct {
	w      io.Writer
	digest Digest
}

// NewDigestWriter wraps w.
func NewDigestWriter(w io.Writer, digest Digest) *DigestWriter {
	return &DigestWriter{w: w, digest: digest}
}

func (t *DigestWriter) Write(p []byte) (int, error) {
	t.digest.Write(p)
	return t.w.Write(p)
}

// Fingerprint finalizes the accumulated bytes. Call only after the
// producer has written the whole body.
func (t *DigestWriter) Fingerprint() ETag {
	return t.digest.Fingerprint()
}
