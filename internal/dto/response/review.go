package response

import (
	"time"

	"cleaning-booking/internal/data/entity"
)

type ReviewResponse struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	ServiceID string    `json:"service_id"`
	StaffID   *string   `json:"staff_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReviewStatsResponse struct {
	ServiceID     string           `json:"service_id"`
	AverageRating float64          `json:"average_rating"`
	ReviewCount   int64            `json:"review_count"`
	Distribution  map[string]int64 `json:"distribution"`
}

func ReviewToResponse(review *entity.Review) ReviewResponse {
	return ReviewResponse{
		ID:        review.ID.String(),
		BookingID: review.BookingID.String(),
		UserID:    review.UserID.String(),
		Username:  review.Username,
		ServiceID: review.ServiceID.String(),
		StaffID:   uuidString(review.StaffID),
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}
