package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodPIX    PaymentMethod = "pix"
	PaymentMethodStripe PaymentMethod = "stripe"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	BaseNoDelete
	BookingID         uuid.UUID       `db:"booking_id"`
	Method            PaymentMethod   `db:"method"`
	Amount            decimal.Decimal `db:"amount"`
	Currency          string          `db:"currency"`
	Status            PaymentStatus   `db:"status"`
	TransactionID     string          `db:"transaction_id"`
	ProviderReference *string         `db:"provider_reference"`
	BRCode            *string         `db:"br_code"`
	ExpiresAt         *time.Time      `db:"expires_at"`
	PaidAt            *time.Time      `db:"paid_at"`
	// RefundDue marks money taken for a booking that was already cancelled.
	RefundDue bool `db:"refund_due"`
}
