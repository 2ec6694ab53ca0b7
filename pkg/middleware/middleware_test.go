package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashgate/etagcache/internal/testutil"
	"github.com/hashgate/etagcache/pkg/cache"
	"github.com/hashgate/etagcache/pkg/etag"
)

func fingerprintOf(t *testing.T, body string) etag.ETag {
	t.Helper()
	digest := etag.BLAKE3().New()
	if _, err := digest.Write([]byte(body)); err != nil {
		t.Fatalf("digest write failed: %v", err)
	}
	return digest.Fingerprint()
}

func newTestHandler(t *testing.T, origin http.Handler, cfg Config) (*Handler, *cache.LRU) {
	t.Helper()
	store, err := cache.NewLRU(16, 0)
	if err != nil {
		t.Fatalf("NewLRU failed: %v", err)
	}
	if cfg.Store == nil {
		cfg.Store = store
	}
	h, err := NewHandler(origin, cfg)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return h, store
}

func TestNewHandler_ConfigErrors(t *testing.T) {
	if _, err := NewHandler(nil, Config{}); err == nil {
		t.Error("Expected error for nil inner handler")
	}
	if _, err := NewHandler(http.NotFoundHandler(), Config{MaxBodyBytes: -1}); err == nil {
		t.Error("Expected error for negative body ceiling")
	}
}

func TestHandler_ShortCircuit(t *testing.T) {
	origin := testutil.NewOrigin("hello world")
	h, store := newTestHandler(t, origin, Config{})

	stored := etag.ETag{Token: "fp-1"}
	store.Put("GET /page", stored)

	req := httptest.NewRequest("GET", "/page", nil)
	req.Header.Set("If-None-Match", stored.String())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Errorf("Expected 304, got %d", w.Code)
	}
	if got := w.Header().Get("ETag"); got != stored.String() {
		t.Errorf("Expected matched tag echoed, got %q", got)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %d bytes", w.Body.Len())
	}
	if origin.Calls() != 0 {
		t.Errorf("Expected inner handler never invoked, got %d calls", origin.Calls())
	}
}

func TestHandler_ForwardAndPopulate(t *testing.T) {
	const body = "response body content"
	origin := testutil.NewOrigin(body)
	h, store := newTestHandler(t, origin, Config{})

	// First request: miss, forwarded, fingerprinted.
	req := httptest.NewRequest("GET", "/data", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	want := fingerprintOf(t, body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != body {
		t.Errorf("Expected body forwarded byte-for-byte, got %q", w.Body.String())
	}
	if got := w.Header().Get("ETag"); got != want.String() {
		t.Errorf("Expected ETag %q, got %q", want.String(), got)
	}
	if entry, ok := store.Get("GET /data"); !ok || entry.ETag != want {
		t.Error("Expected fingerprint recorded in the store")
	}

	// Second identical request presenting the tag: short-circuits.
	req = httptest.NewRequest("GET", "/data", nil)
	req.Header.Set("If-None-Match", want.String())
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Errorf("Expected 304 on revalidation, got %d", w.Code)
	}
	if origin.Calls() != 1 {
		t.Errorf("Expected inner handler invoked exactly once, got %d", origin.Calls())
	}
}

func TestHandler_NonMatchingValidatorForwards(t *testing.T) {
	origin := testutil.NewOrigin("v2 content")
	h, store := newTestHandler(t, origin, Config{})
	store.Put("GET /page", etag.ETag{Token: "old"})

	req := httptest.NewRequest("GET", "/page", nil)
	req.Header.Set("If-None-Match", `"something-else"`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected forward on validator mismatch, got %d", w.Code)
	}
	if origin.Calls() != 1 {
		t.Errorf("Expected inner handler invoked, got %d calls", origin.Calls())
	}

	// Latest wins: the store now holds the new body's tag.
	if entry, ok := store.Get("GET /page"); !ok || entry.ETag != fingerprintOf(t, "v2 content") {
		t.Error("Expected store updated to the fresh fingerprint")
	}
}

func TestHandler_MalformedValidatorTreatedAsAbsent(t *testing.T) {
	origin := testutil.NewOrigin("content")
	h, store := newTestHandler(t, origin, Config{})
	store.Put("GET /page", etag.ETag{Token: "fp"})

	req := httptest.NewRequest("GET", "/page", nil)
	req.Header.Set("If-None-Match", `""`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected malformed validator to forward, got %d", w.Code)
	}
	if origin.Calls() != 1 {
		t.Errorf("Expected inner handler invoked, got %d calls", origin.Calls())
	}
}

func TestHandler_WildcardValidator(t *testing.T) {
	origin := testutil.NewOrigin("content")
	h, store := newTestHandler(t, origin, Config{})
	store.Put("GET /page", etag.ETag{Token: "fp"})

	req := httptest.NewRequest("GET", "/page", nil)
	req.Header.Set("If-None-Match", "*")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Errorf("Expected wildcard to short-circuit against any live entry, got %d", w.Code)
	}
	if origin.Calls() != 0 {
		t.Error("Expected inner handler never invoked for wildcard hit")
	}
}

func TestHandler_WeakComparison(t *testing.T) {
	weak := etag.ETag{Token: "fp", Weak: true}

	t.Run("strong_default_rejects_weak", func(t *testing.T) {
		origin := testutil.NewOrigin("content")
		h, store := newTestHandler(t, origin, Config{})
		store.Put("GET /page", weak)

		req := httptest.NewRequest("GET", "/page", nil)
		req.Header.Set("If-None-Match", weak.String())
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code == http.StatusNotModified {
			t.Error("Weak tag must not short-circuit under strong comparison")
		}
	})

	t.Run("weak_comparison_accepts_weak", func(t *testing.T) {
		origin := testutil.NewOrigin("content")
		h, store := newTestHandler(t, origin, Config{AllowWeakMatch: true})
		store.Put("GET /weak", weak)

		req := httptest.NewRequest("GET", "/weak", nil)
		req.Header.Set("If-None-Match", weak.String())
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusNotModified {
			t.Errorf("Expected weak comparison to short-circuit, got %d", w.Code)
		}
	})
}

func TestHandler_NonCacheableStatusPassesThrough(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not_found", http.StatusNotFound, "missing"},
		{"server_error", http.StatusInternalServerError, "boom"},
		{"no_content", http.StatusNoContent, ""},
		{"redirect", http.StatusMovedPermanently, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin := testutil.NewOrigin(tt.body)
			origin.Status = tt.status
			h, store := newTestHandler(t, origin, Config{})

			req := httptest.NewRequest("GET", "/thing", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d untouched, got %d", tt.status, w.Code)
			}
			if w.Body.String() != tt.body {
				t.Errorf("Expected body untouched, got %q", w.Body.String())
			}
			if got := w.Header().Get("ETag"); got != "" {
				t.Errorf("Expected no ETag on non-cacheable response, got %q", got)
			}
			if _, ok := store.Get("GET /thing"); ok {
				t.Error("Expected no store write for non-cacheable status")
			}
		})
	}
}

func TestHandler_OversizedBodyForwardedUncached(t *testing.T) {
	body := strings.Repeat("x", 100)
	origin := testutil.NewOrigin(body)
	h, store := newTestHandler(t, origin, Config{MaxBodyBytes: 32})

	req := httptest.NewRequest("GET", "/large", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != body {
		t.Error("Expected oversized body forwarded byte-for-byte")
	}
	if got := w.Header().Get("ETag"); got != "" {
		t.Errorf("Expected no ETag on oversized body, got %q", got)
	}
	if _, ok := store.Get("GET /large"); ok {
		t.Error("Expected no store write for oversized body")
	}
}

func TestHandler_FlushingHandlerStreams(t *testing.T) {
	origin := &testutil.Origin{
		Handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("chunk-1"))
			w.(http.Flusher).Flush()
			w.Write([]byte("chunk-2"))
		},
	}
	h, store := newTestHandler(t, origin, Config{})

	req := httptest.NewRequest("GET", "/stream", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Body.String() != "chunk-1chunk-2" {
		t.Errorf("Expected streamed chunks in order, got %q", w.Body.String())
	}
	if got := w.Header().Get("ETag"); got != "" {
		t.Errorf("Expected no ETag on a flushed response, got %q", got)
	}
	if !w.Flushed {
		t.Error("Expected flush propagated to the underlying writer")
	}
	if _, ok := store.Get("GET /stream"); ok {
		t.Error("Expected no store write for a streamed response")
	}
}

func TestHandler_EmptyBodyFingerprinted(t *testing.T) {
	origin := &testutil.Origin{
		Handler: func(w http.ResponseWriter, r *http.Request) {
			// Writes nothing at all.
		},
	}
	h, store := newTestHandler(t, origin, Config{})

	req := httptest.NewRequest("GET", "/empty", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected implicit 200, got %d", w.Code)
	}
	want := fingerprintOf(t, "")
	if got := w.Header().Get("ETag"); got != want.String() {
		t.Errorf("Expected empty-body fingerprint %q, got %q", want.String(), got)
	}
	if _, ok := store.Get("GET /empty"); !ok {
		t.Error("Expected empty body recorded")
	}
}

func TestHandler_HeaderPrecedesBody(t *testing.T) {
	origin := &testutil.Origin{
		Handler: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("payload"))
		},
	}
	h, _ := newTestHandler(t, origin, Config{})

	req := httptest.NewRequest("GET", "/page", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	// Both the handler's own headers and the computed ETag must be
	// present on the single emitted header block.
	if w.Header().Get("Content-Type") != "text/plain" {
		t.Error("Expected inner handler headers preserved")
	}
	if w.Header().Get("ETag") == "" {
		t.Error("Expected ETag set before the body was flushed")
	}
}

func TestHandler_CapacityTwoEndToEnd(t *testing.T) {
	store, err := cache.NewLRU(2, 0)
	if err != nil {
		t.Fatalf("NewLRU failed: %v", err)
	}

	bodies := map[string]string{
		"/a": "body of a",
		"/b": "body of b",
		"/c": "body of c",
	}
	origin := &testutil.Origin{
		Handler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(bodies[r.URL.Path]))
		},
	}
	h, _ := newTestHandler(t, origin, Config{Store: store})

	get := func(path, validator string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", path, nil)
		if validator != "" {
			req.Header.Set("If-None-Match", validator)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	// Three misses in order fill the capacity-2 store and evict A.
	tagA := get("/a", "").Header().Get("ETag")
	tagB := get("/b", "").Header().Get("ETag")
	tagC := get("/c", "").Header().Get("ETag")
	if origin.Calls() != 3 {
		t.Fatalf("Expected 3 origin calls, got %d", origin.Calls())
	}

	// A was evicted: presenting its tag still forwards.
	if w := get("/a", tagA); w.Code != http.StatusOK {
		t.Errorf("Expected evicted A to forward, got %d", w.Code)
	}
	if origin.Calls() != 4 {
		t.Errorf("Expected 4th origin call for evicted A, got %d", origin.Calls())
	}

	// B and C short-circuit... except B, which A's re-insertion evicted.
	// C is still live.
	if w := get("/c", tagC); w.Code != http.StatusNotModified {
		t.Errorf("Expected C to short-circuit, got %d", w.Code)
	}
	if origin.Calls() != 4 {
		t.Errorf("Expected no origin call for live C, got %d", origin.Calls())
	}
	_ = tagB
}

func TestHandler_ConcurrentMisses(t *testing.T) {
	origin := testutil.NewOrigin("shared content")
	h, store := newTestHandler(t, origin, Config{})

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			req := httptest.NewRequest("GET", "/hot", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	// No single-flight: every miss may reach the origin, and the store
	// converges on the single fingerprint all of them computed.
	if origin.Calls() == 0 {
		t.Fatal("Expected origin invoked")
	}
	if entry, ok := store.Get("GET /hot"); !ok || entry.ETag != fingerprintOf(t, "shared content") {
		t.Error("Expected concurrent misses to converge on one fingerprint")
	}
}

func TestHandler_DistinctQueriesDistinctKeys(t *testing.T) {
	origin := &testutil.Origin{
		Handler: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "page %s", r.URL.RawQuery)
		},
	}
	h, store := newTestHandler(t, origin, Config{})

	for _, target := range []string{"/list?page=1", "/list?page=2"} {
		req := httptest.NewRequest("GET", target, nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	e1, ok1 := store.Get("GET /list?page=1")
	e2, ok2 := store.Get("GET /list?page=2")
	if !ok1 || !ok2 {
		t.Fatal("Expected both query variants recorded under distinct keys")
	}
	if e1.ETag == e2.ETag {
		t.Error("Expected distinct content to have distinct fingerprints")
	}
}
