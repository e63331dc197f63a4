// Package events carries domain events from the services to the
// notification handler, over RabbitMQ or in-process.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingAssigned  = "booking.assigned"
	BookingCompleted = "booking.completed"
	BookingReminder  = "booking.reminder"
	PaymentCompleted = "payment.completed"
	CustomerWinback  = "customer.winback"
)

// AllTypes is the routing key set the consumer binds.
var AllTypes = []string{
	BookingCreated, BookingConfirmed, BookingCancelled, BookingAssigned,
	BookingCompleted, BookingReminder, PaymentCompleted, CustomerWinback,
}

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// BookingPayload is attached to every booking.* event.
type BookingPayload struct {
	BookingID uuid.UUID  `json:"booking_id"`
	UserID    uuid.UUID  `json:"user_id"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

type PaymentPayload struct {
	PaymentID uuid.UUID `json:"payment_id"`
	BookingID uuid.UUID `json:"booking_id"`
	UserID    uuid.UUID `json:"user_id"`
	Method    string    `json:"method"`
	Amount    string    `json:"amount"`
}

type WinbackPayload struct {
	UserID       uuid.UUID `json:"user_id"`
	DaysInactive int       `json:"days_inactive"`
}

// Handler consumes one event.
type Handler func(ctx context.Context, event Event) error

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
