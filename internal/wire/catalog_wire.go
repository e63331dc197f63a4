package wire

import (
	"cleaning-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireCatalog(r chi.Router, catalogHandler *adaptor.CatalogHandler, g *guards) {
	// ==================== PUBLIC ROUTES ====================
	r.Route("/services", func(r chi.Router) {
		r.Get("/", catalogHandler.ListServices)
		r.Get("/{id}", catalogHandler.GetService)
		r.Get("/{id}/reviews", catalogHandler.ServiceReviews)
		r.Get("/{id}/review-stats", catalogHandler.ReviewStats)
		r.Get("/{id}/recommendations", catalogHandler.Recommendations)
	})
}
