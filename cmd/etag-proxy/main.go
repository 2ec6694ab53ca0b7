// Command etag-proxy is a reverse proxy that answers conditional
// requests from its fingerprint store, forwarding cache misses to the
// origin and recording body fingerprints on the way back.
package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hashgate/etagcache/pkg/cache"
	"github.com/hashgate/etagcache/pkg/logging"
	"github.com/hashgate/etagcache/pkg/metrics"
	"github.com/hashgate/etagcache/pkg/middleware"
)

func main() {
	cfg, err := configFromEnv()
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		logger := logging.NewLogger("etag-proxy")
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Setup(logging.Config{Level: cfg.logLevel, Pretty: cfg.logPretty, Output: os.Stderr})
	logger := logging.NewLogger("etag-proxy")

	store, err := cache.NewLRU(cfg.capacity, cfg.ttl)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid cache capacity")
	}

	proxy := httputil.NewSingleHostReverseProxy(cfg.origin)
	validated, err := middleware.NewHandler(proxy, middleware.Config{
		Store:        store,
		MaxBodyBytes: cfg.maxBodyBytes,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid middleware configuration")
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.Gatherer, promhttp.HandlerOpts{}))
	// Readiness follows the origin: the middleware has no independent
	// concept of "not ready".
	router.Get("/healthz", healthHandler(cfg.origin))
	router.Handle("/*", validated)

	server := &http.Server{
		Addr:    cfg.listenAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().
			Str("addr", cfg.listenAddr).
			Str("origin", cfg.origin.String()).
			Int("capacity", cfg.capacity).
			Dur("ttl", cfg.ttl).
			Msg("starting etag proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// healthHandler reflects the origin's readiness.
func healthHandler(origin *url.URL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, origin.String(), nil)
		if err != nil {
			http.Error(w, "origin unreachable", http.StatusServiceUnavailable)
			return
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			http.Error(w, "origin unreachable", http.StatusServiceUnavailable)
			return
		}
		resp.Body.Close()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

type config struct {
	listenAddr   string
	origin       *url.URL
	capacity     int
	ttl          time.Duration
	maxBodyBytes int64
	logLevel     string
	logPretty    bool
}

func configFromEnv() (config, error) {
	cfg := config{
		listenAddr: getEnv("LISTEN_ADDR", ":8080"),
		logLevel:   getEnv("LOG_LEVEL", "info"),
		logPretty:  getEnv("LOG_PRETTY", "") == "true",
	}

	origin, err := url.Parse(getEnv("ORIGIN_URL", "http://localhost:9000"))
	if err != nil {
		return cfg, err
	}
	cfg.origin = origin

	cfg.capacity, err = strconv.Atoi(getEnv("CACHE_CAPACITY", "1024"))
	if err != nil {
		return cfg, err
	}

	cfg.ttl, err = time.ParseDuration(getEnv("CACHE_TTL", "0s"))
	if err != nil {
		return cfg, err
	}

	cfg.maxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
