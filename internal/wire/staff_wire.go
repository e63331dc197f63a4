package wire

import (
	"cleaning-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireStaff(r chi.Router, staffHandler *adaptor.StaffHandler, g *guards) {
	r.Route("/staff", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		r.Get("/", staffHandler.ListStaff)
		r.Get("/{id}/availability", staffHandler.Availability)

		// ==================== STAFF ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(g.auth, g.csrf, g.staff)
			r.Put("/me/profile", staffHandler.UpdateMyProfile)
			r.Get("/me/bookings", staffHandler.MyBookings)
		})
	})
}
