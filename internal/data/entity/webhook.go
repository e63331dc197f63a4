package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ProviderPIX    = "pix"
	ProviderStripe = "stripe"
)

// WebhookEvent is the idempotency ledger row keyed by (provider, event_id).
type WebhookEvent struct {
	Provider    string          `db:"provider"`
	EventID     string          `db:"event_id"`
	EventType   string          `db:"event_type"`
	Payload     json.RawMessage `db:"payload"`
	Status      string          `db:"status"`
	ReceivedAt  time.Time       `db:"received_at"`
	ProcessedAt *time.Time      `db:"processed_at"`
}

const (
	WebhookEventReceived  = "received"
	WebhookEventProcessed = "processed"
	WebhookEventFailed    = "failed"
)

type RetryStatus string

const (
	RetryStatusPending    RetryStatus = "pending"
	RetryStatusProcessing RetryStatus = "processing"
	RetryStatusCompleted  RetryStatus = "completed"
	RetryStatusFailed     RetryStatus = "failed"
)

const (
	OperationWebhookPIX         = "webhook.pix"
	OperationWebhookStripe      = "webhook.stripe"
	OperationNotificationResend = "notification.deliver"
)

type WebhookRetry struct {
	BaseNoDelete
	OperationType string          `db:"operation_type"`
	ReferenceID   string          `db:"reference_id"`
	Payload       json.RawMessage `db:"payload"`
	RetryCount    int             `db:"retry_count"`
	MaxRetries    int             `db:"max_retries"`
	NextRetryAt   time.Time       `db:"next_retry_at"`
	Status        RetryStatus     `db:"status"`
	LastError     *string         `db:"last_error"`
}

// RetryUpdate is the outcome written back after an attempt.
type RetryUpdate struct {
	ID          uuid.UUID
	Status      RetryStatus
	RetryCount  int
	NextRetryAt time.Time
	LastError   *string
}
