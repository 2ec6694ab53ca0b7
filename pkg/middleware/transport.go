package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hashgate/etagcache/pkg/etag"
)

// Transport applies the validation protocol in http.RoundTripper
// position: the downstream handler is an origin reached over the wire.
//
// Unlike Handler, bodies beyond the buffering ceiling keep streaming to
// the caller; the fingerprint is recorded only once the body is fully
// drained, and the response keeps whatever ETag header the origin sent.
type Transport struct {
	rt  http.RoundTripper
	cfg Config
	log zerolog.Logger
}

// NewTransport wraps rt. A nil rt selects http.DefaultTransport.
func NewTransport(rt http.RoundTripper, cfg Config) (*Transport, error) {
	if rt == nil {
		rt = http.DefaultTransport
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Transport{
		rt:  rt,
		cfg: cfg,
		log: cfg.Logger.With().Str("surface", "transport").Logger(),
	}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	key, tag, hit := t.cfg.shortCircuit(req)
	if hit {
		notModifiedTotal.Inc()
		t.log.Debug().Str("key", key).Str("etag", tag.String()).Msg("validator matched, short-circuiting")
		return notModifiedResponse(req, tag), nil
	}

	resp, err := t.rt.RoundTrip(req)
	if err != nil {
		// Downstream failure propagates unchanged; the store is not
		// touched.
		return nil, err
	}
	if !cacheableStatus(resp.StatusCode) || resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	digest := t.cfg.Digester.New()
	head, complete, err := readUpTo(resp.Body, digest, t.cfg.MaxBodyBytes)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	if complete {
		tag := digest.Fingerprint()
		resp.Body.Close()
		resp.Header.Set("ETag", tag.String())
		resp.Body = io.NopCloser(bytes.NewReader(head))
		bodiesFingerprinted.Inc()
		t.cfg.Store.Put(key, tag)
		t.log.Debug().Str("key", key).Str("etag", tag.String()).Msg("fingerprint recorded")
		return resp, nil
	}

	// Body exceeds the ceiling: stream it through the digesting wrapper
	// and record the fingerprint as a completion side effect. A caller
	// that closes early abandons the digest and nothing is recorded.
	unbufferedTotal.Inc()
	rest := etag.NewDigestReader(resp.Body, digest, func(tag etag.ETag) {
		bodiesFingerprinted.Inc()
		t.cfg.Store.Put(key, tag)
		t.log.Debug().Str("key", key).Str("etag", tag.String()).Msg("fingerprint recorded after drain")
	})
	resp.Body = &replayBody{
		Reader: io.MultiReader(bytes.NewReader(head), rest),
		closer: rest,
	}
	return resp, nil
}

// readUpTo reads from r until EOF or limit+1 bytes, feeding every chunk
// to digest. complete reports whether the body ended within the limit.
func readUpTo(r io.Reader, digest etag.Digest, limit int64) (head []byte, complete bool, err error) {
	var buf bytes.Buffer
	_, err = io.CopyN(io.MultiWriter(&buf, digest), r, limit+1)
	if err == io.EOF {
		return buf.Bytes(), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return buf.Bytes(), false, nil
}

// replayBody prepends already-digested buffered bytes to the still-open
// remainder of a streaming body.
type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error {
	return b.closer.Close()
}

func notModifiedResponse(req *http.Request, tag etag.ETag) *http.Response {
	header := make(http.Header)
	header.Set("ETag", tag.String())
	return &http.Response{
		Status:     "304 Not Modified",
		StatusCode: http.StatusNotModified,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Body:       http.NoBody,
		Request:    req,
	}
}
