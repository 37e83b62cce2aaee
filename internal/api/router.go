package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-registry/internal/engine"
	"github.com/Priya8975/event-registry/internal/identity"
	"github.com/Priya8975/event-registry/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the HTTP router. limiter may be nil,
// in which case writes are not rate limited.
func NewRouter(reg *registry.Registry, pinger Pinger, validator *identity.Validator, limiter *engine.RateLimiter, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(corsMiddleware)
	r.Use(identity.Middleware(validator, logger))

	eventHandler := NewEventHandler(reg, logger)
	organizerHandler := NewOrganizerHandler(reg, logger)
	registryHandler := NewRegistryHandler(reg, logger)

	// writes requires an authenticated caller and counts against its rate limit
	writes := func(r chi.Router) {
		r.Use(identity.RequirePrincipal)
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(pinger))
		r.Get("/registry", registryHandler.State)

		r.Route("/events", func(r chi.Router) {
			r.Get("/{id}", eventHandler.Get)
			r.Get("/{id}/verified", eventHandler.Verified)

			r.Group(func(r chi.Router) {
				writes(r)
				r.Post("/", eventHandler.Create)
				r.Post("/{id}/verify", eventHandler.Verify)
			})
		})

		r.Route("/organizers", func(r chi.Router) {
			r.Get("/", organizerHandler.List)
			r.Get("/{principal}", organizerHandler.Get)

			r.Group(func(r chi.Router) {
				writes(r)
				r.Post("/", organizerHandler.Add)
			})
		})
	})

	return r
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
