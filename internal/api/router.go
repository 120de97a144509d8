package api

import (
	"log/slog"
	"net/http"

	"emsp/internal/api/middleware"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func NewRouter(h *Handlers, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.Logger)
	r.Use(ChiMiddleware.Recoverer)
	r.Use(ChiMiddleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Idempotent card assignment
	assign := r.With()
	if redisClient != nil {
		assign = r.With(middleware.Idempotency(redisClient))
	}
	assign.Post("/cards/{id}/assign", h.AssignCard)

	r.Get("/events/{id}", h.GetEvent)

	r.Handle("/metrics", promhttp.Handler())

	slog.Info("Registered routes", "routes", "POST /cards/{id}/assign (Idempotent), GET /events/{id}, GET /metrics")

	return r
}
