package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/visionauth/internal/auth"
	"github.com/kozaktomas/visionauth/internal/config"
	"github.com/kozaktomas/visionauth/internal/web/handlers"
	"github.com/kozaktomas/visionauth/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config        *config.Config
	router        *chi.Mux
	httpServer    *http.Server
	controllers   handlers.ControllerSource
	tokens        *auth.TokenIssuer
	deviceManager *middleware.DeviceManager
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, port int, host string, controllers handlers.ControllerSource, tokens *auth.TokenIssuer) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:        cfg,
		router:        r,
		controllers:   controllers,
		tokens:        tokens,
		deviceManager: middleware.NewDeviceManager(cfg.Web.Secret),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", host, port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: captures wait on the model and event streams stay open.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
