package entity

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

type Notification struct {
	ID        uuid.UUID          `db:"id"`
	UserID    *uuid.UUID         `db:"user_id"`
	Channel   string             `db:"channel"`
	Recipient string             `db:"recipient"`
	Subject   string             `db:"subject"`
	Body      string             `db:"body"`
	EventType string             `db:"event_type"`
	Status    NotificationStatus `db:"status"`
	Error     *string            `db:"error"`
	CreatedAt time.Time          `db:"created_at"`
}
