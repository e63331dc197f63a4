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

// Settlement reports what a completion actually changed.
type Settlement struct {
	PaymentCompleted bool
	BookingConfirmed bool
	// RefundDue is set when the booking had been cancelled before the money arrived.
	RefundDue bool
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error)
	FindPendingByBooking(ctx context.Context, bookingID uuid.UUID, method entity.PaymentMethod) (*entity.Payment, error)
	FindLatestByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	CompleteAndConfirmBooking(ctx context.Context, paymentID, bookingID uuid.UUID, paidAt time.Time, providerRef *string) (*Settlement, error)
	MarkFailed(ctx context.Context, id uuid.UUID, providerRef *string) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, method, amount, currency, status, transaction_id,
		       provider_reference, br_code, expires_at, paid_at, refund_due, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.Method,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.TransactionID,
		&p.ProviderReference,
		&p.BRCode,
		&p.ExpiresAt,
		&p.PaidAt,
		&p.RefundDue,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, method, amount, currency, status, transaction_id,
		                      provider_reference, br_code, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Method,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.TransactionID,
		payment.ProviderReference,
		payment.BRCode,
		payment.ExpiresAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment %s: %w", payment.TransactionID, ErrDuplicate)
		}
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}
	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Payment, error) {
	payment, err := scanPayment(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment", zap.Error(err))
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *paymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID)
}

func (r *paymentRepository) FindPendingByBooking(ctx context.Context, bookingID uuid.UUID, method entity.PaymentMethod) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1 AND method = $2 AND status = 'pending'
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, bookingID, method)
}

func (r *paymentRepository) FindLatestByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, bookingID)
}

// CompleteAndConfirmBooking marks a pending payment completed and a pending
// booking confirmed in one transaction. A payment landing on a cancelled
// booking is flagged refund_due instead.
func (r *paymentRepository) CompleteAndConfirmBooking(ctx context.Context, paymentID, bookingID uuid.UUID, paidAt time.Time, providerRef *string) (*Settlement, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin settlement transaction", zap.Error(err))
		return nil, fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = 'completed', paid_at = $2,
		    provider_reference = COALESCE($3, provider_reference), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'expired', 'failed')
	`, paymentID, paidAt, providerRef)
	if err != nil {
		r.log.Error("Failed to complete payment", zap.Error(err), zap.String("payment_id", paymentID.String()))
		return nil, fmt.Errorf("complete payment %s: %w", paymentID.String(), err)
	}

	settlement := &Settlement{PaymentCompleted: result.RowsAffected() == 1}
	if !settlement.PaymentCompleted {
		return settlement, nil
	}

	result, err = tx.Exec(ctx, `
		UPDATE bookings SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, bookingID)
	if err != nil {
		r.log.Error("Failed to confirm booking", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("confirm booking %s: %w", bookingID.String(), err)
	}
	settlement.BookingConfirmed = result.RowsAffected() == 1

	if !settlement.BookingConfirmed {
		result, err = tx.Exec(ctx, `
			UPDATE payments SET refund_due = true, updated_at = NOW()
			WHERE id = $1
			  AND EXISTS (SELECT 1 FROM bookings WHERE id = $2 AND status = 'cancelled')
		`, paymentID, bookingID)
		if err != nil {
			r.log.Error("Failed to flag payment for refund", zap.Error(err), zap.String("payment_id", paymentID.String()))
			return nil, fmt.Errorf("flag payment %s for refund: %w", paymentID.String(), err)
		}
		settlement.RefundDue = result.RowsAffected() == 1
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit settlement", zap.Error(err))
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	return settlement, nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id uuid.UUID, providerRef *string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed', provider_reference = COALESCE($2, provider_reference), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, providerRef)
	if err != nil {
		r.log.Error("Failed to mark payment failed", zap.Error(err), zap.String("payment_id", id.String()))
		return false, fmt.Errorf("mark payment %s failed: %w", id.String(), err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE payments SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to expire payments", zap.Error(err))
		return 0, fmt.Errorf("expire payments: %w", err)
	}
	return result.RowsAffected(), nil
}
