// Package api exposes the CyberGuard HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lvonguyen/cyberguard/internal/api/gateway"
	"github.com/lvonguyen/cyberguard/internal/observability"
	"github.com/lvonguyen/cyberguard/internal/osint"
	"github.com/lvonguyen/cyberguard/internal/service"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP API. Metrics, MetricsHandler,
// Limiter and Store are optional.
type Deps struct {
	Domains        *service.Domains
	Alerts         *service.Alerts
	Scheduler      *osint.Scheduler
	Store          Pinger
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Limiter        *gateway.RateLimiter
	Logger         *zap.Logger
	Version        string
	RequestTimeout time.Duration
}

// Server holds the handlers.
type Server struct {
	domains   *service.Domains
	alerts    *service.Alerts
	scheduler *osint.Scheduler
	store     Pinger
	metrics   *observability.Metrics
	logger    *zap.Logger
	version   string
	started   time.Time
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		domains:   d.Domains,
		alerts:    d.Alerts,
		scheduler: d.Scheduler,
		store:     d.Store,
		metrics:   d.Metrics,
		logger:    d.Logger,
		version:   d.Version,
		started:   time.Now(),
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(d.Metrics))
	r.Use(middleware.Timeout(d.RequestTimeout))

	// Health endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/domains", func(r chi.Router) {
			r.Post("/check", s.handleCheckDomain)

			r.Group(func(r chi.Router) {
				r.Use(requireActor)
				r.Get("/", s.handleListDomains)
				r.Post("/", s.handleAddDomain)
				r.Get("/stats", s.handleDomainStats)
				r.Get("/{id}", s.handleGetDomain)
				r.Put("/{id}", s.handleUpdateDomain)
				r.Delete("/{id}", s.handleDeleteDomain)
				r.Post("/{id}/indicators", s.handleAddIndicator)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Use(requireActor)
			r.Get("/", s.handleListAlerts)
			r.Post("/", s.handleCreateAlert)
			r.Get("/stats", s.handleAlertStats)
			r.Get("/{id}", s.handleGetAlert)
			r.Put("/{id}", s.handleUpdateAlert)
			r.Delete("/{id}", s.handleDeleteAlert)
			r.Patch("/{id}/resolve", s.handleResolveAlert)
		})

		r.Route("/osint", func(r chi.Router) {
			r.Use(requireActor)
			r.With(requireAdmin).Post("/fetch", s.handleTriggerFetch)
			r.Get("/status", s.handleFetchStatus)
			r.Get("/sources", s.handleSources)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "Route not found"})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"version":   s.version,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("Readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
