package web

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/visionauth/internal/constants"
	"github.com/kozaktomas/visionauth/internal/web/handlers"
	"github.com/kozaktomas/visionauth/internal/web/middleware"
	"github.com/kozaktomas/visionauth/internal/web/static"
)

func (s *Server) setupRoutes() {
	// Create handlers
	configHandler := handlers.NewConfigHandler(s.config)
	portalHandler := handlers.NewPortalHandler(s.controllers)
	identityHandler := handlers.NewIdentityHandler(s.tokens)

	// Health check (no device required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", configHandler.Get)

		// Downstream services present the token, not the cookie.
		r.Get("/identity", identityHandler.Get)

		// Everything else acts on the caller's device.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Device(s.deviceManager))

			// Capture waits for the model and the event stream never ends on its own.
			r.Post("/capture", portalHandler.Capture)
			r.Get("/events", portalHandler.Events)

			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(constants.RequestTimeout))

				r.Get("/state", portalHandler.State)
				r.Get("/logs", portalHandler.Logs)
				r.Post("/enroll", portalHandler.Enroll)
				r.Post("/verify", portalHandler.Verify)
				r.Post("/retry", portalHandler.Retry)
				r.Post("/cancel", portalHandler.Cancel)
				r.Delete("/profile", portalHandler.ResetProfile)
			})
		})
	})

	// Serve static files for the portal (SPA)
	s.router.Get("/*", s.serveSPA)
}

// contentTypes maps the extensions shipped in dist to their media types.
var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".ico":  "image/x-icon",
}

// serveSPA serves the single-page application
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	p := r.URL.Path
	if p == "/" {
		p = "/index.html"
	}

	if f, err := fs.Open(p); err == nil {
		defer f.Close()
		if stat, err := f.Stat(); err == nil && !stat.IsDir() {
			contentType, ok := contentTypes[path.Ext(p)]
			if !ok {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)

			// Add cache headers for static assets
			if strings.HasPrefix(p, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=3600")
			}

			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	// Unknown assets are a real 404; any other path belongs to the portal.
	if strings.HasPrefix(p, "/assets/") {
		http.NotFound(w, r)
		return
	}

	indexFile, err := fs.Open("/index.html")
	if err != nil {
		http.Error(w, "portal not available", http.StatusInternalServerError)
		return
	}
	defer indexFile.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, indexFile)
}
