package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bhushan-patil0603/group-study-backend/internal/handlers"
	"github.com/bhushan-patil0603/group-study-backend/internal/metrics"
)

// New assembles the HTTP surface: health, metrics, and the WebSocket
// endpoint. No request timeout middleware is mounted because /ws holds
// connections open indefinitely.
func New(h *handlers.Handlers, clientOrigin string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{clientOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Use(metrics.Middleware("group-study-backend"))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", h.StudyWS)

	return r
}
