package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/diffwarden/internal/config"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
	"github.com/sevigo/diffwarden/internal/server/handler"
	"github.com/sevigo/diffwarden/internal/storage"
)

// NewRouter creates the HTTP router. dispatcher may be nil, in which case
// the GitHub webhook is not mounted.
func NewRouter(ctx context.Context, cfg *config.Config, dispatcher core.JobDispatcher, reviews *review.Service, registry *render.Registry, store storage.Store, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	reviewsHandler := handler.NewReviewsHandler(ctx, reviews, registry, store, logger)
	eventsHandler := handler.NewEventsHandler(registry, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			if dispatcher != nil {
				webhookHandler := handler.NewWebhookHandler(cfg.GitHub, dispatcher, logger)
				r.Post("/webhook/github", webhookHandler.Handle)
			}
			r.Post("/reviews", reviewsHandler.Create)
			r.Get("/history", reviewsHandler.List)
			r.Get("/history/{id}", reviewsHandler.Get)
		})

		// Streams outlive the request timeout.
		r.Get("/reviews/{id}/events", eventsHandler.Handle)
	})

	return r
}
