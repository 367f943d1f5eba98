package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kyc-ledger/internal/config"
	"github.com/kyc-ledger/internal/domain"
	"github.com/kyc-ledger/internal/transport/http/handler"
	appmiddleware "github.com/kyc-ledger/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. Rate limiter cleanup
// stops when ctx is done.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
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

	var authMw func(http.Handler) http.Handler
	if deps.Tokens != nil {
		authMw = appmiddleware.Auth(deps.Tokens)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 on registration.
	registerRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)
	submitRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.SubmitRatePerSecond), cfg.SubmitBurst)

	healthH := handler.NewHealthHandler(deps.HealthChecks)
	userH := handler.NewUserHandler(deps.Users)
	kycH := handler.NewKYCHandler(deps.KYC, cfg.MaxUploadBytes)
	notifH := handler.NewNotificationHandler(deps.Notifications)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(registerRL.Limit).Post("/users", userH.Register)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			// Any authenticated user
			r.Get("/users/{id}", userH.Get)
			r.Get("/kyc/me", kycH.Me)
			r.Get("/kyc/records/{userID}/documents/{kind}", kycH.DocumentURL)
			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			// Artists
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleArtist))
				r.Use(submitRL.Limit)

				r.Post("/kyc/submissions", kycH.Submit)
				r.Post("/kyc/submissions/refs", kycH.SubmitRefs)
			})

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
				r.Put("/users/{id}/role", userH.SetRole)
				r.Delete("/users/{id}", userH.Disable)

				r.Get("/kyc/records", kycH.List)
				r.Get("/kyc/summary", kycH.Summary)
				r.Get("/kyc/records/{userID}", kycH.Get)
				r.Post("/kyc/records/{userID}/approve", kycH.Approve)
				r.Post("/kyc/records/{userID}/reject", kycH.Reject)
			})
		})
	})

	return r
}
