package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/muelita-bot/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/muelita-bot/internal/http/middleware"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// WhatsAppWebhook is the inbound channel surface mounted at /webhooks/whatsapp.
type WhatsAppWebhook interface {
	HandleVerification(w http.ResponseWriter, r *http.Request)
	HandleWebhook(w http.ResponseWriter, r *http.Request)
}

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	WhatsApp        WhatsAppWebhook
	Health          *handlers.HealthHandler
	AdminSessions   *handlers.AdminSessionsHandler
	AdminAuthSecret string
	MetricsHandler  http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	health := cfg.Health
	if health == nil {
		health = handlers.NewHealthHandler(nil, cfg.Logger)
	}

	// Public endpoints (webhooks, probes)
	r.Group(func(public chi.Router) {
		public.Get("/health", health.Live)
		public.Get("/ready", health.Ready)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WhatsApp != nil {
			public.Route("/webhooks/whatsapp", func(wa chi.Router) {
				wa.Get("/", cfg.WhatsApp.HandleVerification)
				wa.Post("/", cfg.WhatsApp.HandleWebhook)
			})
		}
	})

	if cfg.AdminSessions != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/sessions", cfg.AdminSessions.ListSessions)
			admin.Delete("/sessions/{senderID}", cfg.AdminSessions.ResetSession)
		})
	}

	return r
}
