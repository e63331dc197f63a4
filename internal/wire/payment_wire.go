package wire

import (
	"cleaning-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, webhookHandler *adaptor.WebhookHandler, g *guards) {
	r.Route("/payments", func(r chi.Router) {
		r.Use(g.auth, g.csrf)

		r.Post("/pix", paymentHandler.CreatePIX)
		r.Post("/stripe", paymentHandler.CreateStripe)
	})

	// signed by the provider, no user auth
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/pix", webhookHandler.PIX)
		r.Post("/stripe", webhookHandler.Stripe)
	})
}
