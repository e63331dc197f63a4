package adaptor

import (
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreatePIX handles POST /api/v1/payments/pix
func (h *PaymentHandler) CreatePIX(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.service.CreatePIX(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create pix charge")
		return
	}
	utils.ResponseCreated(w, "PIX charge created", payment)
}

// CreateStripe handles POST /api/v1/payments/stripe
func (h *PaymentHandler) CreateStripe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.service.CreateStripe(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create card payment")
		return
	}
	utils.ResponseCreated(w, "Payment intent created", payment)
}
