// Package server provides HTTP server management and lifecycle handling for the calculator API.
// It includes server setup, middleware configuration, route management, and graceful shutdown
// capabilities with proper error handling and logging.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/giygas/pedscalc-api/config"
	"github.com/giygas/pedscalc-api/data"
	"github.com/giygas/pedscalc-api/handlers"
	"github.com/giygas/pedscalc-api/health"
	"github.com/giygas/pedscalc-api/interfaces"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/giygas/pedscalc-api/metrics"
	"github.com/giygas/pedscalc-api/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const rateLimitCleanupInterval = 30 * time.Minute

// Server represents the HTTP server
type Server struct {
	server        *http.Server
	router        chi.Router
	dataContainer *data.DataContainer
	config        *config.Config
	httpHandler   interfaces.HTTPHandler
	healthChecker interfaces.HealthChecker
	rateLimiter   *RateLimiter
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, dataContainer *data.DataContainer) *Server {
	router := chi.NewRouter()

	healthChecker := health.NewHealthChecker(dataContainer, time.Duration(cfg.CatalogCheckMinutes)*time.Minute)

	server := &Server{
		server: &http.Server{
			Handler:        router,
			Addr:           net.JoinHostPort(cfg.Address, cfg.Port),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: int(cfg.MaxHeaderSize),
		},
		router:        router,
		dataContainer: dataContainer,
		config:        cfg,
		httpHandler:   handlers.NewHTTPHandler(dataContainer, validation.NewPatientValidator(), healthChecker, cfg.DefaultLocale),
		healthChecker: healthChecker,
		rateLimiter:   NewRateLimiter(cfg.RateLimitRate, cfg.RateLimitCapacity),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(BlockDirectAccessMiddleware(s.config.Env != config.EnvProduction)) // Put BEFORE RealIPMiddleware to see original RemoteAddr
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Metrics)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag", "Content-Language", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Compress(5))
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/calculate", s.httpHandler.Calculate)
		r.Post("/calculate", s.httpHandler.CalculateFromBody)
		r.Post("/infusion/rate", s.httpHandler.InfusionRate)
		r.Get("/catalog", s.httpHandler.ServeCatalog)
		r.Get("/categories", s.httpHandler.ServeCategories)
		r.Get("/translations/{locale}", s.httpHandler.ServeTranslations)
	})

	s.router.Get("/health", s.httpHandler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondWithError(w, http.StatusNotFound, "Route not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	s.rateLimiter.StartCleanup(rateLimitCleanupInterval)

	logging.Info(fmt.Sprintf("Starting server at: %s", s.server.Addr),
		"env", s.config.Env.String(),
		"catalog_source", s.dataContainer.GetSource(),
		"default_locale", s.config.DefaultLocale,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// Router exposes the configured router
func (s *Server) Router() http.Handler {
	return s.router
}
