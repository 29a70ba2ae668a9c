// SPDX-License-Identifier: MIT

// Package api serves read-only queries over the crawled performance
// VOD archive.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/SNH48Live/KVM48/internal/log"
	"github.com/SNH48Live/KVM48/internal/store"
)

const readmeURL = "https://github.com/SNH48Live/KVM48#readme"

// Config holds the server's tunables.
type Config struct {
	// Addr is the listen address, e.g. ":8048".
	Addr string

	// RateLimit is the allowed requests per window per client IP.
	// Zero disables rate limiting.
	RateLimit int

	// RateWindow is the rate limiting window. Defaults to one second.
	RateWindow time.Duration

	// RedisURL, when set, backs the rate limit counters with redis so
	// that multiple replicas share one budget. Empty keeps the
	// counters in process memory.
	RedisURL string
}

// Server is the HTTP query service.
type Server struct {
	store  *store.Store
	cfg    Config
	logger zerolog.Logger
}

// New returns a Server reading from st.
func New(st *store.Store, cfg Config) *Server {
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Second
	}
	return &Server{
		store:  st,
		cfg:    cfg,
		logger: log.WithComponent("api"),
	}
}

// Router assembles the chi router. Rate limiting applies to the /api
// subtree only; health and metrics stay exempt.
func (s *Server) Router() (chi.Router, error) {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(countRequests)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, readmeURL, http.StatusFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	limit, err := s.rateLimiter()
	if err != nil {
		return nil, err
	}
	r.Route("/api", func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Get("/vods", s.handleVODsByRange)
		r.Get("/vods/{id}", s.handleVODByID)
		r.Post("/vods/lookup", s.handleVODLookup)
	})
	return r, nil
}

func (s *Server) rateLimiter() (func(http.Handler) http.Handler, error) {
	if s.cfg.RateLimit <= 0 {
		return nil, nil
	}
	opts := []httprate.Option{
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
		}),
	}
	if s.cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(s.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		counter := newRedisCounter(redis.NewClient(redisOpts))
		opts = append(opts, httprate.WithLimitCounter(counter))
		s.logger.Info().Str("redis", redisOpts.Addr).Msg("rate limit counters in redis")
	}
	return httprate.Limit(s.cfg.RateLimit, s.cfg.RateWindow, opts...), nil
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("request")
		})
	}
}
