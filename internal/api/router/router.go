package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/coaching-booking-platform/internal/appointments"
	"github.com/wolfman30/coaching-booking-platform/internal/authprobe"
	"github.com/wolfman30/coaching-booking-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/coaching-booking-platform/internal/http/middleware"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Appointments       *appointments.Handler
	AuthProbe          *authprobe.Handler
	Diagnostics        *handlers.DiagnosticsHandler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
	Production         bool

	// Per-IP limit for the public credential and booking endpoints.
	PublicRateLimit  int
	PublicRateWindow time.Duration
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.SecureHeaders(cfg.Production, cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	limit := cfg.PublicRateLimit
	if limit <= 0 {
		limit = 10
	}
	window := cfg.PublicRateWindow
	if window <= 0 {
		window = time.Minute
	}
	publicLimit := httpmiddleware.RateLimitByIP(limit, window)

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.Diagnostics != nil {
			public.Get("/health", cfg.Diagnostics.Health)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/api", func(api chi.Router) {
			api.Use(publicLimit)
			if cfg.AuthProbe != nil {
				api.Post("/auth/probe", cfg.AuthProbe.Probe)
				api.Post("/admin/login", cfg.AuthProbe.AdminLogin)
			}
			if cfg.Appointments != nil {
				api.Post("/appointments", cfg.Appointments.Book)
			}
		})
	})

	// Admin routes (protected by JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.Appointments != nil {
				admin.Route("/appointments", func(appts chi.Router) {
					appts.Get("/", cfg.Appointments.List)
					appts.Get("/stats", cfg.Appointments.Stats)
					appts.Post("/reschedule", cfg.Appointments.Reschedule)
					appts.Post("/cancel", cfg.Appointments.Cancel)
					appts.Get("/{id}", cfg.Appointments.Get)
					appts.Get("/{id}/history", cfg.Appointments.History)
				})
			}
			if cfg.Diagnostics != nil {
				admin.Get("/diagnostics", cfg.Diagnostics.Diagnostics)
			}
		})
	}

	return r
}
