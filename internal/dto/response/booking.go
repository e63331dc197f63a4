package response

import (
	"time"

	"cleaning-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingResponse struct {
	ID                 string                 `json:"id"`
	OrderID            string                 `json:"order_id"`
	UserID             string                 `json:"user_id"`
	CustomerName       string                 `json:"customer_name,omitempty"`
	ServiceID          string                 `json:"service_id"`
	ServiceName        string                 `json:"service_name,omitempty"`
	ServiceCategory    entity.ServiceCategory `json:"service_category,omitempty"`
	StaffID            *string                `json:"staff_id,omitempty"`
	StaffName          *string                `json:"staff_name,omitempty"`
	StartAt            time.Time              `json:"start_at"`
	EndAt              time.Time              `json:"end_at"`
	Address            string                 `json:"address"`
	Notes              *string                `json:"notes,omitempty"`
	BasePrice          decimal.Decimal        `json:"base_price"`
	TotalPrice         decimal.Decimal        `json:"total_price"`
	Status             entity.BookingStatus   `json:"status"`
	CancellationReason *string                `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID.String(),
		OrderID:            b.OrderID,
		UserID:             b.UserID.String(),
		ServiceID:          b.ServiceID.String(),
		StaffID:            uuidString(b.StaffID),
		StartAt:            b.StartAt,
		EndAt:              b.EndAt,
		Address:            b.Address,
		Notes:              b.Notes,
		BasePrice:          b.BasePrice,
		TotalPrice:         b.TotalPrice,
		Status:             b.Status,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func BookingDetailToResponse(d *entity.BookingDetail) BookingResponse {
	resp := BookingToResponse(&d.Booking)
	resp.CustomerName = d.CustomerName
	resp.ServiceName = d.ServiceName
	resp.ServiceCategory = d.ServiceCategory
	resp.StaffName = d.StaffName
	return resp
}

// QuoteResponse is the dynamic price with every factor that produced it.
type QuoteResponse struct {
	ServiceID       string          `json:"service_id"`
	StartAt         time.Time       `json:"start_at"`
	EndAt           time.Time       `json:"end_at"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DemandFactor    decimal.Decimal `json:"demand_factor"`
	Utilisation     float64         `json:"utilisation"`
	RushFactor      decimal.Decimal `json:"rush_factor"`
	DayFactor       decimal.Decimal `json:"day_factor"`
	LoyaltyDiscount decimal.Decimal `json:"loyalty_discount"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Clamped         bool            `json:"clamped"`
}

type StaffCandidateResponse struct {
	StaffID       string          `json:"staff_id"`
	Username      string          `json:"username"`
	Score         float64         `json:"score"`
	Specialized   bool            `json:"specialized"`
	Rating        decimal.Decimal `json:"rating"`
	DayLoad       int             `json:"day_load"`
	MaxDaily      int             `json:"max_daily_bookings"`
	CompletedJobs int             `json:"completed_jobs"`
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
