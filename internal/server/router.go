package server

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/parlor-chat/parlor/internal/metrics"
)

// NewRouter builds the chi router with the standard middleware chain and all
// application routes.
func NewRouter(h *Handler, logger zerolog.Logger, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", h.Health)

	r.Get("/", h.HomePage)
	r.Post("/", h.EnterRoom)
	r.Get("/room", h.RoomPage)
	r.Get("/ws", h.ServeWS)

	return r
}
