package response

import (
	"encoding/json"
	"time"

	"cleaning-booking/internal/data/entity"

	"github.com/shopspring/decimal"
)

type PaymentResponse struct {
	ID            string               `json:"id"`
	BookingID     string               `json:"booking_id"`
	Method        entity.PaymentMethod `json:"method"`
	Amount        decimal.Decimal      `json:"amount"`
	Currency      string               `json:"currency"`
	Status        entity.PaymentStatus `json:"status"`
	TransactionID string               `json:"transaction_id"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	RefundDue     bool                 `json:"refund_due,omitempty"`

	// PIX
	BRCode    *string `json:"br_code,omitempty"`
	QRCodePNG string  `json:"qr_code_png,omitempty"`

	// Stripe
	ClientSecret string `json:"client_secret,omitempty"`
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.String(),
		BookingID:     p.BookingID.String(),
		Method:        p.Method,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		ExpiresAt:     p.ExpiresAt,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
		BRCode:        p.BRCode,
		RefundDue:     p.RefundDue,
	}
}

type WebhookResponse struct {
	Result string `json:"result"`
}

type RetryResponse struct {
	ID            string             `json:"id"`
	OperationType string             `json:"operation_type"`
	ReferenceID   string             `json:"reference_id"`
	Payload       json.RawMessage    `json:"payload"`
	RetryCount    int                `json:"retry_count"`
	MaxRetries    int                `json:"max_retries"`
	NextRetryAt   time.Time          `json:"next_retry_at"`
	Status        entity.RetryStatus `json:"status"`
	LastError     *string            `json:"last_error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func RetryToResponse(r *entity.WebhookRetry) RetryResponse {
	return RetryResponse{
		ID:            r.ID.String(),
		OperationType: r.OperationType,
		ReferenceID:   r.ReferenceID,
		Payload:       r.Payload,
		RetryCount:    r.RetryCount,
		MaxRetries:    r.MaxRetries,
		NextRetryAt:   r.NextRetryAt,
		Status:        r.Status,
		LastError:     r.LastError,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
