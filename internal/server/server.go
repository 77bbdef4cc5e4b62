// Package server exposes station coverage over HTTP: station listings,
// GeoJSON coverage layers, point coverage queries and reload notifications.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unklstewy/ads-bcoverage/internal/auth"
	"github.com/unklstewy/ads-bcoverage/internal/loader"
	"github.com/unklstewy/ads-bcoverage/internal/metrics"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

// Reloader forces a feed reload outside the regular schedule.
type Reloader interface {
	TryReload(ctx context.Context) (*coverage.StationSet, error)
	Status() loader.Status
}

// Options wires a Server. Store is required; everything else is optional.
type Options struct {
	Store    *coverage.Store
	Querier  *coverage.CachedQuerier
	Reloader Reloader
	Auth     *auth.Service
	Metrics  *metrics.Collector
	Logger   *zap.Logger

	RingRadiiNM    []float64
	RingSegments   int
	AllowedOrigins []string
}

// Server is the coverage HTTP API.
type Server struct {
	router   chi.Router
	store    *coverage.Store
	querier  *coverage.CachedQuerier
	reloader Reloader
	authSvc  *auth.Service
	metrics  *metrics.Collector
	logger   *zap.Logger

	ringRadii    []float64
	ringSegments int
	origins      []string
}

// New creates a server and registers its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.RingRadiiNM) == 0 {
		opts.RingRadiiNM = coverage.DefaultRingRadiiNM
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		router:       chi.NewRouter(),
		store:        opts.Store,
		querier:      opts.Querier,
		reloader:     opts.Reloader,
		authSvc:      opts.Auth,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		ringRadii:    opts.RingRadiiNM,
		ringSegments: opts.RingSegments,
		origins:      opts.AllowedOrigins,
	}
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	if g := s.metrics.Gatherer(); g != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The websocket is registered outside the compressed group.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			r.Post("/auth/login", s.handleLogin)
			r.Post("/reload", s.handleReload)

			r.Get("/stations", s.handleListStations)
			r.Get("/stations/{id}", s.handleGetStation)
			r.Get("/stations/{id}/polygons", s.handleStationPolygons)
			r.Get("/stations/{id}/rings", s.handleStationRings)
			r.Get("/layers/{metric}", s.handleLayer)
			r.Get("/coverage", s.handleCoverage)
		})
	})
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondGeoJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
