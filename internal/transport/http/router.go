package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-mentoring-notifier/internal/config"
	"github.com/go-mentoring-notifier/internal/transport/http/handler"
	appmiddleware "github.com/go-mentoring-notifier/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Backend publishers share an egress IP, so the bucket is generous.
	serviceRL := appmiddleware.NewRateLimiter(rate.Limit(50), 100)

	healthH := handler.NewHealthHandler()
	deviceH := handler.NewDeviceHandler(deps.Devices)
	prefH := handler.NewPreferenceHandler(deps.Preferences)
	busH := handler.NewBusHandler(deps.Bus)
	taskH := handler.NewTaskHandler(deps.Reminders)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		if deps.JWTProvider == nil && deps.Scheduler == nil {
			return
		}

		// ── Backend callers ──────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(serviceRL.Limit)
			r.Use(appmiddleware.ServiceAuth(deps.JWTProvider, deps.Scheduler))

			r.Post("/bus/{kind}", busH.Publish)
			r.Post("/tasks/reminders", taskH.Reminders)
		})

		if deps.JWTProvider == nil {
			return
		}

		// ── Authenticated users ──────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Get("/devices", deviceH.List)
			r.Post("/devices", deviceH.Register)
			r.Delete("/devices/{id}", deviceH.Delete)
			r.Get("/preferences", prefH.Get)
			r.Put("/preferences", prefH.Update)
		})
	})

	return r
}
