package adaptor

import (
	"net/http"

	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
)

type StaffHandler struct {
	service  usecase.StaffService
	bookings usecase.BookingService
	log      *zap.Logger
}

func NewStaffHandler(service usecase.StaffService, bookings usecase.BookingService, log *zap.Logger) *StaffHandler {
	return &StaffHandler{
		service:  service,
		bookings: bookings,
		log:      log.With(zap.String("handler", "staff")),
	}
}

// ListStaff handles GET /api/v1/staff
func (h *StaffHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	filter := request.StaffFilter{
		Specialization:   optionalQuery(r, "specialization"),
		Available:        utils.ParseBool(r.URL.Query().Get("available")),
		PaginatedRequest: pageFrom(r),
	}
	if !validQuery(w, filter) {
		return
	}

	staff, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, h.log, err, "list staff")
		return
	}
	utils.ResponseSuccess(w, "success", staff)
}

// Availability handles GET /api/v1/staff/{id}/availability?date=YYYY-MM-DD
func (h *StaffHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		utils.ResponseBadRequest(w, "Validation failed", map[string]string{"date": "This field is required"})
		return
	}

	slots, err := h.service.Availability(r.Context(), id, date)
	if err != nil {
		handleServiceError(w, h.log, err, "staff availability")
		return
	}
	utils.ResponseSuccess(w, "success", slots)
}

// UpdateMyProfile handles PUT /api/v1/staff/me/profile (staff only)
func (h *StaffHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	staffID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req request.UpdateStaffProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateMyProfile(r.Context(), staffID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update staff profile")
		return
	}
	utils.ResponseSuccess(w, "Profile updated", profile)
}

// MyBookings handles GET /api/v1/staff/me/bookings (staff only)
func (h *StaffHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	staffID, ok := currentUser(w, r)
	if !ok {
		return
	}

	req := bookingListFrom(r)
	if !validQuery(w, req) {
		return
	}

	bookings, err := h.bookings.ListAssigned(r.Context(), staffID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "list assigned bookings")
		return
	}
	utils.ResponseSuccess(w, "success", bookings)
}
