package request

type UpdateStaffProfileRequest struct {
	Specializations  []string `json:"specializations,omitempty" validate:"omitempty,dive,oneof=residential commercial deep_cleaning move_in_out post_construction carpet window"`
	Bio              *string  `json:"bio,omitempty" validate:"omitempty,max=1000"`
	IsAvailable      *bool    `json:"is_available,omitempty"`
	MaxDailyBookings *int     `json:"max_daily_bookings,omitempty" validate:"omitempty,min=1,max=12"`
}

type StaffFilter struct {
	Specialization *string `validate:"omitempty,oneof=residential commercial deep_cleaning move_in_out post_construction carpet window"`
	Available      *bool
	PaginatedRequest
}
