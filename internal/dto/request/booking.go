package request

type CreateBookingRequest struct {
	ServiceID        string  `json:"service_id" validate:"required,uuid"`
	Date             string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string  `json:"time" validate:"required,datetime=15:04"`
	Address          string  `json:"address" validate:"required,min=5,max=500"`
	Notes            *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	PreferredStaffID *string `json:"preferred_staff_id,omitempty" validate:"omitempty,uuid"`
}

type QuoteRequest struct {
	ServiceID string `json:"service_id" validate:"required,uuid"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,datetime=15:04"`
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type UpdateBookingStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=confirmed in_progress completed cancelled"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type AssignStaffRequest struct {
	StaffID string `json:"staff_id" validate:"required,uuid"`
}

type BookingListRequest struct {
	Status *string `validate:"omitempty,oneof=pending confirmed in_progress completed cancelled"`
	PaginatedRequest
}
