package adaptor

import (
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service  usecase.BookingService
	payments usecase.PaymentService
	log      *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, payments usecase.PaymentService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service:  service,
		payments: payments,
		log:      log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/v1/bookings (protected)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create booking")
		return
	}
	utils.ResponseCreated(w, "Booking created, awaiting payment", booking)
}

// Quote handles POST /api/v1/bookings/quote (protected)
func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.QuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	quote, err := h.service.Quote(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "quote booking")
		return
	}
	utils.ResponseSuccess(w, "success", quote)
}

// ListMine handles GET /api/v1/bookings (protected)
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	req := bookingListFrom(r)
	if !validQuery(w, req) {
		return
	}

	bookings, err := h.service.ListMine(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "list my bookings")
		return
	}
	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/v1/bookings/{id} (owner, assigned staff or admin)
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, h.log, err, "get booking")
		return
	}
	utils.ResponseSuccess(w, "success", booking)
}

// CancelBooking handles POST /api/v1/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req request.CancelBookingRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.Cancel(r.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}
	utils.ResponseSuccess(w, "Booking cancelled", booking)
}

// UpdateStatus handles PATCH /api/v1/bookings/{id}/status (staff or admin)
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req request.UpdateBookingStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update booking status")
		return
	}
	utils.ResponseSuccess(w, "Booking status updated", booking)
}

// GetPayment handles GET /api/v1/bookings/{id}/payment
func (h *BookingHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetForBooking(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, h.log, err, "get booking payment")
		return
	}
	utils.ResponseSuccess(w, "success", payment)
}

// ==================== ADMIN METHODS ====================

// ListAll handles GET /api/v1/admin/bookings (admin only)
func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	req := bookingListFrom(r)
	if !validQuery(w, req) {
		return
	}

	bookings, err := h.service.ListAll(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list bookings")
		return
	}
	utils.ResponseSuccess(w, "success", bookings)
}

// AssignStaff handles POST /api/v1/admin/bookings/{id}/assign (admin only)
func (h *BookingHandler) AssignStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req request.AssignStaffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		utils.ResponseBadRequest(w, "Validation failed", map[string]string{"staff_id": "Must be a valid UUID"})
		return
	}

	booking, err := h.service.AssignStaff(r.Context(), id, staffID)
	if err != nil {
		handleServiceError(w, h.log, err, "assign staff")
		return
	}
	utils.ResponseSuccess(w, "Staff assigned", booking)
}

// AutoAssign handles POST /api/v1/admin/bookings/{id}/auto-assign (admin only)
func (h *BookingHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.AutoAssign(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "auto-assign staff")
		return
	}
	utils.ResponseSuccess(w, "Staff assigned", booking)
}

// StaffCandidates handles GET /api/v1/admin/bookings/{id}/staff-candidates (admin only)
func (h *BookingHandler) StaffCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	candidates, err := h.service.StaffCandidates(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "rank staff candidates")
		return
	}
	utils.ResponseSuccess(w, "success", candidates)
}

func bookingListFrom(r *http.Request) request.BookingListRequest {
	return request.BookingListRequest{
		Status:           optionalQuery(r, "status"),
		PaginatedRequest: pageFrom(r),
	}
}
