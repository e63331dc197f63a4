package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// WebhookEventRepository is the idempotency ledger for provider callbacks.
type WebhookEventRepository interface {
	// Record inserts the event and reports false when (provider, event_id) was already seen.
	Record(ctx context.Context, event *entity.WebhookEvent) (bool, error)
	MarkStatus(ctx context.Context, provider, eventID, status string) error
	// Forget deletes the event so a redelivery is treated as new.
	Forget(ctx context.Context, provider, eventID string) error
}

type webhookEventRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewWebhookEventRepository(db database.PgxIface, log *zap.Logger) WebhookEventRepository {
	return &webhookEventRepository{
		db:  db,
		log: log.With(zap.String("repository", "webhook_event")),
	}
}

func (r *webhookEventRepository) Record(ctx context.Context, event *entity.WebhookEvent) (bool, error) {
	query := `
		INSERT INTO webhook_events (provider, event_id, event_type, payload, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, event_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		event.Provider,
		event.EventID,
		event.EventType,
		event.Payload,
		event.Status,
		event.ReceivedAt,
	)
	if err != nil {
		r.log.Error("Failed to record webhook event",
			zap.Error(err),
			zap.String("provider", event.Provider),
			zap.String("event_id", event.EventID),
		)
		return false, fmt.Errorf("record webhook event %s/%s: %w", event.Provider, event.EventID, err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *webhookEventRepository) MarkStatus(ctx context.Context, provider, eventID, status string) error {
	query := `
		UPDATE webhook_events SET status = $3, processed_at = NOW()
		WHERE provider = $1 AND event_id = $2
	`

	if _, err := r.db.Exec(ctx, query, provider, eventID, status); err != nil {
		r.log.Error("Failed to mark webhook event", zap.Error(err), zap.String("event_id", eventID))
		return fmt.Errorf("mark webhook event %s/%s: %w", provider, eventID, err)
	}
	return nil
}

func (r *webhookEventRepository) Forget(ctx context.Context, provider, eventID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM webhook_events WHERE provider = $1 AND event_id = $2`, provider, eventID); err != nil {
		r.log.Error("Failed to forget webhook event", zap.Error(err), zap.String("event_id", eventID))
		return fmt.Errorf("forget webhook event %s/%s: %w", provider, eventID, err)
	}
	return nil
}

// RetryRepository stores the exponential-backoff retry queue.
type RetryRepository interface {
	Create(ctx context.Context, retry *entity.WebhookRetry) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.WebhookRetry, error)
	ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*entity.WebhookRetry, error)
	Update(ctx context.Context, update entity.RetryUpdate) error
	FindAll(ctx context.Context, status *entity.RetryStatus, limit, offset int) ([]*entity.WebhookRetry, error)
	CountAll(ctx context.Context, status *entity.RetryStatus) (int64, error)
	Requeue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type retryRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRetryRepository(db database.PgxIface, log *zap.Logger) RetryRepository {
	return &retryRepository{
		db:  db,
		log: log.With(zap.String("repository", "webhook_retry")),
	}
}

const retryColumns = `id, operation_type, reference_id, payload, retry_count, max_retries,
		       next_retry_at, status, last_error, created_at, updated_at`

func scanRetry(row pgx.Row) (*entity.WebhookRetry, error) {
	var rt entity.WebhookRetry
	err := row.Scan(
		&rt.ID,
		&rt.OperationType,
		&rt.ReferenceID,
		&rt.Payload,
		&rt.RetryCount,
		&rt.MaxRetries,
		&rt.NextRetryAt,
		&rt.Status,
		&rt.LastError,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *retryRepository) collect(rows pgx.Rows) ([]*entity.WebhookRetry, error) {
	defer rows.Close()

	var retries []*entity.WebhookRetry
	for rows.Next() {
		rt, err := scanRetry(rows)
		if err != nil {
			r.log.Error("Failed to scan retry row", zap.Error(err))
			return nil, fmt.Errorf("scan retry row: %w", err)
		}
		retries = append(retries, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate retry rows: %w", err)
	}
	return retries, nil
}

func (r *retryRepository) Create(ctx context.Context, retry *entity.WebhookRetry) error {
	query := `
		INSERT INTO webhook_retries (id, operation_type, reference_id, payload, retry_count,
		                             max_retries, next_retry_at, status, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		retry.ID,
		retry.OperationType,
		retry.ReferenceID,
		retry.Payload,
		retry.RetryCount,
		retry.MaxRetries,
		retry.NextRetryAt,
		retry.Status,
		retry.LastError,
		retry.CreatedAt,
		retry.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to enqueue retry",
			zap.Error(err),
			zap.String("operation", retry.OperationType),
			zap.String("reference_id", retry.ReferenceID),
		)
		return fmt.Errorf("enqueue retry %s: %w", retry.OperationType, err)
	}
	return nil
}

func (r *retryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.WebhookRetry, error) {
	rt, err := scanRetry(r.db.QueryRow(ctx, `SELECT `+retryColumns+` FROM webhook_retries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find retry", zap.Error(err), zap.String("retry_id", id.String()))
		return nil, fmt.Errorf("find retry %s: %w", id.String(), err)
	}
	return rt, nil
}

// ClaimDue moves up to limit due rows to processing and returns them.
// Rows stuck in processing since before staleBefore are claimed again, so a
// poller that died mid-batch does not strand its rows. Rows locked by a
// concurrent poller are skipped.
func (r *retryRepository) ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*entity.WebhookRetry, error) {
	query := `
		UPDATE webhook_retries
		SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM webhook_retries
			WHERE (status = 'pending' AND next_retry_at <= $1)
			   OR (status = 'processing' AND updated_at < $2)
			ORDER BY next_retry_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + retryColumns

	rows, err := r.db.Query(ctx, query, now, staleBefore, limit)
	if err != nil {
		r.log.Error("Failed to claim due retries", zap.Error(err))
		return nil, fmt.Errorf("claim due retries: %w", err)
	}
	return r.collect(rows)
}

func (r *retryRepository) Update(ctx context.Context, update entity.RetryUpdate) error {
	query := `
		UPDATE webhook_retries
		SET status = $2, retry_count = $3, next_retry_at = $4, last_error = $5, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, update.ID, update.Status, update.RetryCount, update.NextRetryAt, update.LastError)
	if err != nil {
		r.log.Error("Failed to update retry", zap.Error(err), zap.String("retry_id", update.ID.String()))
		return fmt.Errorf("update retry %s: %w", update.ID.String(), err)
	}
	return nil
}

func (r *retryRepository) FindAll(ctx context.Context, status *entity.RetryStatus, limit, offset int) ([]*entity.WebhookRetry, error) {
	query := `
		SELECT ` + retryColumns + `
		FROM webhook_retries
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.log.Error("Failed to list retries", zap.Error(err))
		return nil, fmt.Errorf("list retries: %w", err)
	}
	return r.collect(rows)
}

func (r *retryRepository) CountAll(ctx context.Context, status *entity.RetryStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM webhook_retries WHERE ($1::text IS NULL OR status = $1)`, status).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count retries", zap.Error(err))
		return 0, fmt.Errorf("count retries: %w", err)
	}
	return count, nil
}

// Requeue resets a failed row to pending, due at now.
func (r *retryRepository) Requeue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE webhook_retries
		SET status = 'pending', retry_count = 0, next_retry_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'failed'
	`

	result, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		r.log.Error("Failed to requeue retry", zap.Error(err), zap.String("retry_id", id.String()))
		return false, fmt.Errorf("requeue retry %s: %w", id.String(), err)
	}
	return result.RowsAffected() == 1, nil
}
