package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medicore/hospital-api/internal/ai"
	"github.com/medicore/hospital-api/internal/auth"
	"github.com/medicore/hospital-api/internal/booking"
	"github.com/medicore/hospital-api/internal/docstore"
)

type RouterConfig struct {
	Service *booking.Service
	Repo    booking.Repository
	Tokens  *auth.TokenManager
	AI      *ai.Client
	Docs    *docstore.Store
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/signup", signupHandler(cfg.Repo, cfg.Tokens))
		r.Post("/login", loginHandler(cfg.Repo, cfg.Tokens))

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Tokens))

			r.Get("/doctors", listDoctorsHandler(cfg.Repo))
			r.Get("/doctors/specializations", listSpecializationsHandler(cfg.Repo))

			r.Get("/patients/{id}", patientDetailHandler(cfg.Repo))

			r.Get("/slots", availableSlotsHandler(cfg.Service))

			r.Post("/appointments", createAppointmentHandler(cfg.Service, cfg.Repo))
			r.Get("/appointments", listAppointmentsHandler(cfg.Repo))
			r.Get("/appointments/{id}", getAppointmentHandler(cfg.Repo))
			r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service, cfg.Repo))
			r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service, cfg.Repo))

			r.Post("/documents/upload", uploadDocumentHandler(cfg.Docs, cfg.Repo))
			r.Get("/documents", listDocumentsHandler(cfg.Docs, cfg.Repo))

			r.Post("/chat", chatHandler(cfg.AI))
			r.Post("/summarize-history", summarizeHistoryHandler(cfg.AI, cfg.Repo))
		})
	})

	return r
}
