// Package api exposes the fleet registry over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/passssat/fleet-registry/pkg/audit"
	"github.com/passssat/fleet-registry/pkg/cache"
	"github.com/passssat/fleet-registry/pkg/jobs"
	"github.com/passssat/fleet-registry/pkg/metrics"
	"github.com/passssat/fleet-registry/pkg/registry"
)

const (
	// PathPrefix is the mount point of the versioned API.
	PathPrefix = "/api/v1"

	defaultFeedLimit = 100
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	Audit          *audit.Store
	AuditConfig    audit.Config
	Logger         *slog.Logger
	// Cache holds public map and reference list responses; nil disables it.
	Cache *cache.Cache
	// Imports mounts the import queue under /imports when set.
	Imports *jobs.Store
	// DisableMetrics drops the request histogram and the /metrics endpoint.
	DisableMetrics bool
	// RequestTimeout bounds handler execution; zero disables it.
	RequestTimeout time.Duration
}

// Server binds the registry service to chi routes.
type Server struct {
	svc    *registry.Service
	opts   Options
	logger *slog.Logger
}

// NewServer creates a Server around svc.
func NewServer(svc *registry.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}
	return &Server{svc: svc, opts: opts, logger: logger}
}

// Router builds the complete handler tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id", audit.ActorHeader},
		ExposedHeaders:   []string{"Link", cache.HeaderCache},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if !s.opts.DisableMetrics {
		r.Use(metrics.Middleware)
	}
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}
	if s.opts.Audit != nil {
		r.Use(audit.Middleware(s.opts.Audit, s.opts.AuditConfig, s.logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.readyHandler)
	if !s.opts.DisableMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route(PathPrefix, func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(cache.InvalidateOnWrite(s.opts.Cache))
		s.mountCore(r)
		s.mountTelemetry(r)
		r.With(s.cached).Get("/public/map", listHandler(s.svc.PublicMap))
		if s.opts.Audit != nil {
			r.Mount("/audit", audit.Router(s.opts.Audit))
		}
		if s.opts.Imports != nil {
			r.Mount("/imports", jobs.Router(s.opts.Imports))
		}
	})
	return r
}

// cached serves a read-mostly GET route from the response cache.
func (s *Server) cached(next http.Handler) http.Handler {
	return cache.Middleware(s.opts.Cache)(next)
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	sqlDB, err := s.svc.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
