package adaptor

import (
	"errors"
	"io"
	"net/http"

	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

const (
	maxWebhookBody = 1 << 20

	headerPIXSignature    = "X-Pix-Signature"
	headerPIXTimestamp    = "X-Pix-Timestamp"
	headerStripeSignature = "Stripe-Signature"
)

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// PIX handles POST /api/v1/webhooks/pix
func (h *WebhookHandler) PIX(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	outcome, err := h.service.HandlePIX(r.Context(), body, r.Header.Get(headerPIXSignature), r.Header.Get(headerPIXTimestamp))
	if err != nil {
		handleServiceError(w, h.log, err, "pix webhook")
		return
	}
	respondOutcome(w, outcome)
}

// Stripe handles POST /api/v1/webhooks/stripe
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	outcome, err := h.service.HandleStripe(r.Context(), body, r.Header.Get(headerStripeSignature))
	if err != nil {
		handleServiceError(w, h.log, err, "stripe webhook")
		return
	}
	respondOutcome(w, outcome)
}

// readBody keeps the exact bytes; signatures are computed over them.
func (h *WebhookHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.ResponseBadRequest(w, "Payload too large", nil)
			return nil, false
		}
		h.log.Warn("Failed to read webhook body", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return nil, false
	}
	return body, true
}

func respondOutcome(w http.ResponseWriter, outcome string) {
	data := map[string]string{"result": outcome}
	if outcome == usecase.WebhookQueued {
		utils.ResponseAccepted(w, "Event accepted for retry", data)
		return
	}
	utils.ResponseSuccess(w, "Event received", data)
}
