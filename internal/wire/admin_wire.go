package wire

import (
	"cleaning-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAdmin(r chi.Router, h *adaptor.Handler, g *guards) {
	// ==================== ADMIN ROUTES ====================
	r.Route("/admin", func(r chi.Router) {
		r.Use(g.auth, g.csrf, g.admin)

		r.Get("/users", h.Admin.ListUsers)
		r.Patch("/users/{id}/role", h.Admin.UpdateRole)
		r.Delete("/users/{id}", h.Admin.DeleteUser)

		r.Post("/services", h.Catalog.CreateService)
		r.Put("/services/{id}", h.Catalog.UpdateService)
		r.Delete("/services/{id}", h.Catalog.DeleteService)
		r.Post("/services/{id}/image", h.Catalog.UploadImage)

		r.Get("/bookings", h.Booking.ListAll)
		r.Post("/bookings/{id}/assign", h.Booking.AssignStaff)
		r.Post("/bookings/{id}/auto-assign", h.Booking.AutoAssign)
		r.Get("/bookings/{id}/staff-candidates", h.Booking.StaffCandidates)

		r.Get("/analytics/dashboard", h.Admin.Dashboard)
		r.Get("/analytics/churn", h.Admin.Churn)

		r.Get("/retries", h.Admin.ListRetries)
		r.Post("/retries/{id}/requeue", h.Admin.RequeueRetry)
	})
}
