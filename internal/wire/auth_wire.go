package wire

import (
	"cleaning-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAuth(r chi.Router, authHandler *adaptor.AuthHandler, g *guards) {
	r.Route("/auth", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		r.Get("/csrf", authHandler.CSRF)

		// credential endpoints get the stricter limiter
		r.Group(func(r chi.Router) {
			r.Use(g.authLimit)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/send-otp", authHandler.SendOTP)
			r.Post("/verify-email", authHandler.VerifyEmail)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		// the refresh cookie rides along here, so CSRF applies
		r.With(g.csrf).Post("/refresh", authHandler.Refresh)

		// ==================== PROTECTED ROUTES ====================
		r.With(g.auth, g.csrf).Post("/logout", authHandler.Logout)
	})
}
