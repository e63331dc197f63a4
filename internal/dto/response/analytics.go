package response

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardResponse struct {
	From            time.Time                 `json:"from"`
	To              time.Time                 `json:"to"`
	BookingsByState map[string]int64          `json:"bookings_by_status"`
	TotalBookings   int64                     `json:"total_bookings"`
	Revenue         decimal.Decimal           `json:"revenue"`
	AverageRating   float64                   `json:"average_rating"`
	ActiveCustomers int64                     `json:"active_customers"`
	TopServices     []ServicePerformanceEntry `json:"top_services"`
	Staff           []StaffPerformanceEntry   `json:"staff_performance"`
	Daily           []DailyEntry              `json:"daily"`
}

type ServicePerformanceEntry struct {
	ServiceID string          `json:"service_id"`
	Name      string          `json:"name"`
	Bookings  int64           `json:"bookings"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type StaffPerformanceEntry struct {
	StaffID       string          `json:"staff_id"`
	Username      string          `json:"username"`
	CompletedJobs int64           `json:"completed_jobs"`
	Rating        decimal.Decimal `json:"rating"`
	Revenue       decimal.Decimal `json:"revenue"`
}

type DailyEntry struct {
	Date     string          `json:"date"`
	Bookings int64           `json:"bookings"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type ChurnEntry struct {
	UserID        string          `json:"user_id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	LastBookingAt time.Time       `json:"last_booking_at"`
	DaysInactive  int             `json:"days_inactive"`
	TotalBookings int64           `json:"total_bookings"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	Risk          string          `json:"risk"`
}

type ChurnResponse struct {
	ThresholdDays int          `json:"threshold_days"`
	Customers     []ChurnEntry `json:"customers"`
}
