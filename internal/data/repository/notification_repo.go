package repository

import (
	"context"
	"errors"
	"fmt"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.NotificationStatus, errMsg *string) error
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewNotificationRepository(db database.PgxIface, log *zap.Logger) NotificationRepository {
	return &notificationRepository{
		db:  db,
		log: log.With(zap.String("repository", "notification")),
	}
}

const notificationColumns = `id, user_id, channel, recipient, subject, body, event_type, status, error, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		n.ID, n.UserID, n.Channel, n.Recipient, n.Subject, n.Body, n.EventType, n.Status, n.Error, n.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to log notification", zap.Error(err), zap.String("channel", n.Channel))
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	rows, err := r.db.Query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to find notification", zap.Error(err), zap.String("notification_id", id.String()))
		return nil, fmt.Errorf("find notification %s: %w", id.String(), err)
	}

	n, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[entity.Notification])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification %s: %w", id.String(), err)
	}
	return n, nil
}

func (r *notificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.NotificationStatus, errMsg *string) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET status = $2, error = $3 WHERE id = $1`, id, status, errMsg)
	if err != nil {
		r.log.Error("Failed to update notification", zap.Error(err), zap.String("notification_id", id.String()))
		return fmt.Errorf("update notification %s: %w", id.String(), err)
	}
	return nil
}

func (r *notificationRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list notifications", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("list notifications of user %s: %w", userID.String(), err)
	}

	notifications, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[entity.Notification])
	if err != nil {
		return nil, fmt.Errorf("collect notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count notifications", zap.Error(err))
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}
