// Package api provides the HTTP API server and handlers for the Marquee application.
package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"log/slog"

	"github.com/marqueeapp/marquee-server/internal/config"
	"github.com/marqueeapp/marquee-server/internal/sse"
	"github.com/marqueeapp/marquee-server/internal/store"
)

// Version is the API version reported in the OpenAPI document.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	services   *Services
	router     *chi.Mux
	api        huma.API
	sseHandler *sse.Handler
	sseManager *sse.Manager
	logger     *slog.Logger

	// authRateLimiter throttles signup/login by client IP.
	authRateLimiter *RateLimiter
	// writeRateLimiter throttles review/like/favorite writes by user.
	writeRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseManager *sse.Manager, cfg *config.Config, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	router.Use(authMiddleware(services.Auth))

	humaConfig := huma.DefaultConfig("Marquee API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	humaAPI := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	authPerMinute := 10
	writePerMinute := 30
	if cfg != nil {
		if cfg.RateLimit.AuthPerMinute > 0 {
			authPerMinute = cfg.RateLimit.AuthPerMinute
		}
		if cfg.RateLimit.WritePerMinute > 0 {
			writePerMinute = cfg.RateLimit.WritePerMinute
		}
	}

	s := &Server{
		store:            st,
		services:         services,
		router:           router,
		api:              humaAPI,
		sseManager:       sseManager,
		logger:           logger,
		authRateLimiter:  NewRateLimiter(authPerMinute, time.Minute, authPerMinute),
		writeRateLimiter: NewRateLimiter(writePerMinute, time.Minute, writePerMinute),
	}
	s.sseHandler = sse.NewHandler(sseManager, logger, UserIDFromRequest)

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerVenueRoutes()
	s.registerReviewRoutes()
	s.registerSocialRoutes()

	// The event stream stays a plain chi route. huma buffers response
	// bodies, which breaks long-lived SSE connections.
	router.Get("/api/v1/events", s.sseHandler.ServeHTTP)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
