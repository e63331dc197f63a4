package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Read models produced by the analytics queries.

type StatusCount struct {
	Status BookingStatus
	Count  int64
}

type ServicePerformance struct {
	ServiceID uuid.UUID
	Name      string
	Bookings  int64
	Revenue   decimal.Decimal
}

type StaffPerformance struct {
	StaffID       uuid.UUID
	Username      string
	CompletedJobs int64
	Rating        decimal.Decimal
	Revenue       decimal.Decimal
}

type DailyPoint struct {
	Day      time.Time
	Bookings int64
	Revenue  decimal.Decimal
}

type DashboardTotals struct {
	Revenue         decimal.Decimal
	AverageRating   float64
	ActiveCustomers int64
}

// CustomerActivity is one customer's booking history summary.
type CustomerActivity struct {
	UserID        uuid.UUID
	Username      string
	Email         string
	LastBookingAt time.Time
	TotalBookings int64
	TotalSpent    decimal.Decimal
}

// ServiceAffinity is a co-booking or popularity score for a service.
type ServiceAffinity struct {
	Service *CleaningService
	Score   int64
}
