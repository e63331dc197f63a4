package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted},
}

// CanTransitionTo reports whether the status may move to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Active bookings hold a time slot.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed || s == BookingStatusInProgress
}

type Booking struct {
	BaseNoDelete
	OrderID            string          `db:"order_id"`
	UserID             uuid.UUID       `db:"user_id"`
	ServiceID          uuid.UUID       `db:"service_id"`
	StaffID            *uuid.UUID      `db:"staff_id"`
	StartAt            time.Time       `db:"start_at"`
	EndAt              time.Time       `db:"end_at"`
	Address            string          `db:"address"`
	Notes              *string         `db:"notes"`
	BasePrice          decimal.Decimal `db:"base_price"`
	TotalPrice         decimal.Decimal `db:"total_price"`
	Status             BookingStatus   `db:"status"`
	CancellationReason *string         `db:"cancellation_reason"`
	ReminderSentAt     *time.Time      `db:"reminder_sent_at"`
}

// BookingDetail is a booking joined with its service and staff names.
type BookingDetail struct {
	Booking
	ServiceName     string          `db:"service_name"`
	ServiceCategory ServiceCategory `db:"service_category"`
	CustomerName    string          `db:"customer_name"`
	StaffName       *string         `db:"staff_name"`
}

type BookingFilter struct {
	UserID  *uuid.UUID
	StaffID *uuid.UUID
	Status  *BookingStatus
}

// TimeSlot is a booked interval.
type TimeSlot struct {
	BookingID uuid.UUID `db:"id"`
	StartAt   time.Time `db:"start_at"`
	EndAt     time.Time `db:"end_at"`
}
