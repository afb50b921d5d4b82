// Package api provides the local HTTP API consumed by the popup UI.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/WaelFa/SpeedyPaws/internal/background"
	"github.com/WaelFa/SpeedyPaws/internal/broadcast"
	"github.com/WaelFa/SpeedyPaws/internal/coordinator"
	"github.com/WaelFa/SpeedyPaws/internal/ratelimit"
	"github.com/WaelFa/SpeedyPaws/internal/store"
	"github.com/WaelFa/SpeedyPaws/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	backend     *background.Coordinator
	sessions    *coordinator.Manager
	broadcaster *broadcast.Manager
	sseHandler  *broadcast.Handler
	validator   *validation.Validator
	limiter     *ratelimit.KeyedRateLimiter
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(st *store.Store, backend *background.Coordinator, sessions *coordinator.Manager, broadcaster *broadcast.Manager, sseHandler *broadcast.Handler, logger *slog.Logger) *Server {
	s := &Server{
		store:       st,
		backend:     backend,
		sessions:    sessions,
		broadcaster: broadcaster,
		sseHandler:  sseHandler,
		validator:   validation.New(),
		limiter:     ratelimit.New(50, 100),
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// The popup loads from an extension origin, never from the
	// daemon's own origin, so every request is cross-origin.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Use(s.rateLimitMiddleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	config := huma.DefaultConfig("SpeedyPaws API", "1.0.0")
	s.api = humachi.New(s.router, config)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerSpeedRoutes()
	s.registerSettingsRoutes()
	s.registerTabRoutes()

	// SSE does not fit huma's request/response model; mount it on chi directly.
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
}
