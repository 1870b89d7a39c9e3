package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ticketvault/ticketvault/internal/observability"
	"github.com/ticketvault/ticketvault/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(CallerMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Post("/v1/events", h.CreateEvent)
	r.Put("/v1/events/{id}", h.EditEvent)
	r.Get("/v1/events/{id}", h.GetEvent)
	r.Get("/v1/events/{id}/attendees", h.GetAttendees)

	// Purchases move funds, so the key requirement applies only here.
	r.Group(func(r chi.Router) {
		r.Use(IdempotencyKeyMiddleware)
		r.Post("/v1/events/{id}/purchases/native", h.BuyWithNative)
		r.Post("/v1/events/{id}/purchases/token", h.BuyWithToken)
	})

	r.Post("/v1/events/{id}/withdrawal", h.WithdrawEventFunds)
	r.Post("/v1/admin/fees/withdrawal", h.WithdrawAdminFee)
	r.Post("/v1/admin/creators", h.AddWhitelistedCreator)
	r.Put("/v1/admin/blacklist", h.UpdateBlacklist)

	r.Get("/v1/rate", h.Rate)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
