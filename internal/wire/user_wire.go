package wire

import (
	"cleaning-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireUser(r chi.Router, userHandler *adaptor.UserHandler, g *guards) {
	r.Route("/users/me", func(r chi.Router) {
		r.Use(g.auth, g.csrf)

		r.Get("/", userHandler.GetProfile)
		r.Put("/", userHandler.UpdateProfile)
		r.Get("/reviews", userHandler.MyReviews)
		r.Get("/notifications", userHandler.MyNotifications)
		r.Get("/recommendations", userHandler.MyRecommendations)
	})
}
