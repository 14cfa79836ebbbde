package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apiMiddleware "github.com/dghosef/vscode-flix/internal/api/middleware"
)

// NewRouter creates and configures the debug API router with all routes
// and middleware.
func NewRouter(svc SchedulerService, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	queueHandler := NewQueueHandler(svc, logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/queue/stats", queueHandler.GetStats)
		r.Post("/jobs", queueHandler.SubmitJob)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
