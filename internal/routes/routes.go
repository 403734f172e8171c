package routes

import (
	"time"

	"github.com/Hayal27/chrm-server/internal/auth"
	"github.com/Hayal27/chrm-server/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
) {
	// Per-IP throttles on the credential endpoints. The account-level lockout
	// policy handles targeted guessing; these keep a single source from
	// hammering the endpoints across many accounts.
	loginLimiter := httprate.LimitByIP(10, time.Minute)
	resetLimiter := httprate.LimitByIP(5, time.Minute)

	// Public routes - no authentication required
	router.With(loginLimiter).Post("/auth/login", authHandler.Login)
	router.With(resetLimiter).Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.With(resetLimiter).Post("/auth/reset-password", authHandler.ResetPassword)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)
	})
}
