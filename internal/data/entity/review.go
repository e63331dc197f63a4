package entity

import (
	"github.com/google/uuid"
)

type Review struct {
	BaseNoDelete
	BookingID uuid.UUID  `db:"booking_id"`
	UserID    uuid.UUID  `db:"user_id"`
	ServiceID uuid.UUID  `db:"service_id"`
	StaffID   *uuid.UUID `db:"staff_id"`
	Rating    int        `db:"rating"` // 1-5
	Comment   *string    `db:"comment"`

	Username string `db:"username"`
}

type ReviewStats struct {
	Average      float64
	Count        int64
	Distribution map[int]int64
}
