package response

import (
	"time"

	"cleaning-booking/internal/data/entity"

	"github.com/shopspring/decimal"
)

type StaffResponse struct {
	UserID           string          `json:"user_id"`
	Username         string          `json:"username"`
	Specializations  []string        `json:"specializations"`
	Bio              string          `json:"bio"`
	IsAvailable      bool            `json:"is_available"`
	MaxDailyBookings int             `json:"max_daily_bookings"`
	Rating           decimal.Decimal `json:"rating"`
	TotalReviews     int             `json:"total_reviews"`
	CompletedJobs    int             `json:"completed_jobs"`
}

func StaffToResponse(p *entity.StaffProfile) StaffResponse {
	specs := p.Specializations
	if specs == nil {
		specs = []string{}
	}
	return StaffResponse{
		UserID:           p.UserID.String(),
		Username:         p.Username,
		Specializations:  specs,
		Bio:              p.Bio,
		IsAvailable:      p.IsAvailable,
		MaxDailyBookings: p.MaxDailyBookings,
		Rating:           p.Rating,
		TotalReviews:     p.TotalReviews,
		CompletedJobs:    p.CompletedJobs,
	}
}

type SlotResponse struct {
	BookingID string    `json:"booking_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
}

type AvailabilityResponse struct {
	StaffID     string         `json:"staff_id"`
	Date        string         `json:"date"`
	IsAvailable bool           `json:"is_available"`
	Booked      []SlotResponse `json:"booked"`
}
