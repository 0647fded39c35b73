// Package http provides HTTP routing and middleware configuration
// for the download gateway.
package http

import (
	"net/http"

	"github.com/ZyrticX/MP4/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// download gateway API. It applies request logging and user identity
// extraction, and mounts the download endpoints under /api/downloads.
//
// Routes:
//
//	GET  /health                        → liveness probe
//	POST /api/downloads                 → downloadHandler.Submit
//	GET  /api/downloads/{jobID}         → downloadHandler.Status
//	GET  /api/downloads/user/{userID}   → downloadHandler.ListForUser
//	POST /api/downloads/{jobID}/cancel  → downloadHandler.Cancel
//	POST /api/downloads/{jobID}/retry   → downloadHandler.Retry
func NewRouter(downloadHandler *DownloadHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	// Resolve the optional X-User-ID header into the request context
	r.Use(middleware.UserIdentity)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/downloads", func(r chi.Router) {
		// Requests with a body must be JSON; bodyless requests pass
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Post("/", downloadHandler.Submit)
		r.Get("/user/{userID}", downloadHandler.ListForUser)
		r.Get("/{jobID}", downloadHandler.Status)
		r.Post("/{jobID}/cancel", downloadHandler.Cancel)
		r.Post("/{jobID}/retry", downloadHandler.Retry)
	})

	return r
}
