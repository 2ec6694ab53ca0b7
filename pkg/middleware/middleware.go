package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hashgate/etagcache/pkg/cache"
	"github.com/hashgate/etagcache/pkg/etag"
)

const (
	// DefaultMaxBodyBytes is the default body buffering ceiling.
	DefaultMaxBodyBytes = 1 << 20 // 1 MiB

	// DefaultCapacity is the default store capacity when none is given.
	DefaultCapacity = 1024
)

// ErrInvalidBodyCeiling indicates a negative MaxBodyBytes.
var ErrInvalidBodyCeiling = errors.New("middleware: max body bytes must not be negative")

// Config holds the middleware configuration. The zero value is usable:
// every field has a default.
type Config struct {
	// Store holds previously computed fingerprints. Defaults to an LRU
	// of DefaultCapacity entries with no time expiry.
	Store cache.Store

	// Keyer derives cache keys from requests. Defaults to
	// cache.DefaultKeyer (method + path + query).
	Keyer cache.Keyer

	// Digester derives fingerprints from body bytes. Defaults to
	// etag.BLAKE3.
	Digester etag.Digester

	// MaxBodyBytes is the buffering ceiling. Bodies at most this large
	// are held back so the fingerprint is known before any byte reaches
	// the client; larger bodies pass through unbuffered and uncached.
	// Zero selects DefaultMaxBodyBytes; negative is a configuration
	// error.
	MaxBodyBytes int64

	// AllowWeakMatch switches validator comparison from strong to weak.
	// The default digesters only issue strong tags, so strong comparison
	// is the default.
	AllowWeakMatch bool

	// Logger for per-request debug output. Defaults to the global
	// zerolog logger.
	Logger *zerolog.Logger
}

func (cfg Config) withDefaults() (Config, error) {
	if cfg.MaxBodyBytes < 0 {
		return cfg, ErrInvalidBodyCeiling
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Store == nil {
		store, err := cache.NewLRU(DefaultCapacity, 0)
		if err != nil {
			return cfg, err
		}
		cfg.Store = store
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.DefaultKeyer{}
	}
	if cfg.Digester == nil {
		cfg.Digester = etag.BLAKE3()
	}
	if cfg.Logger == nil {
		logger := log.With().Str("component", "etagcache").Logger()
		cfg.Logger = &logger
	}
	return cfg, nil
}

// shortCircuit looks up the request's key and decides whether the cached
// fingerprint answers the client without invoking the downstream.
func (cfg Config) shortCircuit(r *http.Request) (key string, tag etag.ETag, hit bool) {
	key = cfg.Keyer.Key(r)
	cond := etag.ParseIfNoneMatch(r.Header.Values("If-None-Match"))
	// The lookup happens even without conditional info: it refreshes the
	// entry's recency.
	entry, ok := cfg.Store.Get(key)
	if !ok || cond.Empty() {
		return key, etag.ETag{}, false
	}
	return key, entry.ETag, cond.Match(entry.ETag, cfg.AllowWeakMatch)
}

// cacheableStatus reports whether a response status carries content worth
// fingerprinting: successful, with body semantics.
func cacheableStatus(status int) bool {
	if status < 200 || status > 299 {
		return false
	}
	return status != http.StatusNoContent && status != http.StatusResetContent
}

// Handler applies the validation protocol in front of an inner
// http.Handler. Create it with NewHandler.
type Handler struct {
	next http.Handler
	cfg  Config
	log  zerolog.Logger
}

// NewHandler wraps next. Configuration misuse is rejected here, not at
// request time.
func NewHandler(next http.Handler, cfg Config) (*Handler, error) {
	if next == nil {
		return nil, errors.New("middleware: inner handler is required")
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Handler{
		next: next,
		cfg:  cfg,
		log:  cfg.Logger.With().Str("surface", "handler").Logger(),
	}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, tag, hit := h.cfg.shortCircuit(r)
	if hit {
		notModifiedTotal.Inc()
		h.log.Debug().Str("key", key).Str("etag", tag.String()).Msg("validator matched, short-circuiting")
		w.Header().Set("ETag", tag.String())
		w.WriteHeader(http.StatusNotModified)
		return
	}

	rec := newBodyRecorder(w, h.cfg.Digester.New(), h.cfg.MaxBodyBytes)
	h.next.ServeHTTP(rec, r)

	tag, ok := rec.finish()
	if !ok {
		return
	}
	// A client that went away mid-response abandoned the body; its
	// fingerprint is not recorded.
	if r.Context().Err() != nil {
		return
	}
	bodiesFingerprinted.Inc()
	h.cfg.Store.Put(key, tag)
	h.log.Debug().Str("key", key).Str("etag", tag.String()).Msg("fingerprint recorded")
}
