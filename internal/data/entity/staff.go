package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StaffProfile struct {
	UserID           uuid.UUID       `db:"user_id"`
	Specializations  []string        `db:"specializations"`
	Bio              string          `db:"bio"`
	IsAvailable      bool            `db:"is_available"`
	MaxDailyBookings int             `db:"max_daily_bookings"`
	Rating           decimal.Decimal `db:"rating"`
	TotalReviews     int             `db:"total_reviews"`
	CompletedJobs    int             `db:"completed_jobs"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`

	// joined from users
	Username string  `db:"username"`
	Email    string  `db:"email"`
	Phone    *string `db:"phone"`
}

func (p *StaffProfile) HasSpecialization(category ServiceCategory) bool {
	for _, s := range p.Specializations {
		if s == string(category) {
			return true
		}
	}
	return false
}

// StaffCandidate is a staff profile with its load on the requested day.
type StaffCandidate struct {
	Profile     *StaffProfile
	DayLoad     int
	HasConflict bool
}
