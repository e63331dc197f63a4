package wire

import (
	"cleaning-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, g *guards) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Route("/bookings", func(r chi.Router) {
		r.Use(g.auth, g.csrf)

		r.Post("/", bookingHandler.CreateBooking)
		r.Post("/quote", bookingHandler.Quote)
		r.Get("/", bookingHandler.ListMine)
		r.Get("/{id}", bookingHandler.GetBooking)
		r.Post("/{id}/cancel", bookingHandler.CancelBooking)
		r.Get("/{id}/payment", bookingHandler.GetPayment)

		r.With(g.staffOrAd).Patch("/{id}/status", bookingHandler.UpdateStatus)
	})
}
