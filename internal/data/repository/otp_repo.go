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

type OTPRepository interface {
	Create(ctx context.Context, otp *entity.OTP) error
	FindActiveOTP(ctx context.Context, email string, otpType entity.OTPType) (*entity.OTP, error)
	RecordFailedAttempt(ctx context.Context, otpID uuid.UUID, maxAttempts int) (int, error)
	MarkAsUsed(ctx context.Context, otpID uuid.UUID) error
	InvalidateActive(ctx context.Context, userID uuid.UUID, otpType entity.OTPType) error
	DeleteStale(ctx context.Context) (int64, error)
}

type otpRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOTPRepository(db database.PgxIface, log *zap.Logger) OTPRepository {
	return &otpRepository{
		db:  db,
		log: log.With(zap.String("repository", "otp")),
	}
}

func (r *otpRepository) Create(ctx context.Context, otp *entity.OTP) error {
	query := `
		INSERT INTO otps (id, user_id, email, otp_code, otp_type,
		                  expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		otp.ID,
		otp.UserID,
		otp.Email,
		otp.OTPCode,
		otp.OTPType,
		otp.ExpiresAt,
		otp.IsUsed,
		otp.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create OTP",
			zap.Error(err),
			zap.String("email", otp.Email),
			zap.String("otp_type", string(otp.OTPType)),
		)
		return fmt.Errorf("create OTP for %s: %w", otp.Email, err)
	}

	return nil
}

// FindActiveOTP returns the newest unused, unexpired code of the type, or nil.
// The caller compares the code so wrong guesses can be counted.
func (r *otpRepository) FindActiveOTP(ctx context.Context, email string, otpType entity.OTPType) (*entity.OTP, error) {
	query := `
		SELECT id, user_id, email, otp_code, otp_type,
		       expires_at, is_used, attempts, created_at
		FROM otps
		WHERE LOWER(email) = LOWER($1)
		  AND otp_type = $2
		  AND is_used = false
		  AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`

	var otp entity.OTP
	err := r.db.QueryRow(ctx, query, email, otpType).Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Email,
		&otp.OTPCode,
		&otp.OTPType,
		&otp.ExpiresAt,
		&otp.IsUsed,
		&otp.Attempts,
		&otp.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find active OTP",
			zap.Error(err),
			zap.String("email", email),
			zap.String("otp_type", string(otpType)),
		)
		return nil, fmt.Errorf("find active OTP for %s type %s: %w", email, otpType, err)
	}

	return &otp, nil
}

// RecordFailedAttempt counts a wrong guess and burns the code once maxAttempts is reached.
// It returns the new attempt count.
func (r *otpRepository) RecordFailedAttempt(ctx context.Context, otpID uuid.UUID, maxAttempts int) (int, error) {
	query := `
		UPDATE otps
		SET attempts = attempts + 1,
		    is_used = (attempts + 1 >= $2)
		WHERE id = $1 AND is_used = false
		RETURNING attempts
	`

	var attempts int
	err := r.db.QueryRow(ctx, query, otpID, maxAttempts).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		// burned concurrently
		return maxAttempts, nil
	}
	if err != nil {
		r.log.Error("Failed to record OTP attempt",
			zap.Error(err),
			zap.String("otp_id", otpID.String()),
		)
		return 0, fmt.Errorf("record attempt on OTP %s: %w", otpID.String(), err)
	}
	return attempts, nil
}

func (r *otpRepository) MarkAsUsed(ctx context.Context, otpID uuid.UUID) error {
	query := `
		UPDATE otps
		SET is_used = true
		WHERE id = $1 AND is_used = false
	`

	result, err := r.db.Exec(ctx, query, otpID)
	if err != nil {
		r.log.Error("Failed to mark OTP as used",
			zap.Error(err),
			zap.String("otp_id", otpID.String()),
		)
		return fmt.Errorf("mark OTP %s as used: %w", otpID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark OTP %s as used: %w", otpID.String(), ErrNoRowsAffected)
	}

	return nil
}

// InvalidateActive marks every unused code of the type as used so only the newest one works.
func (r *otpRepository) InvalidateActive(ctx context.Context, userID uuid.UUID, otpType entity.OTPType) error {
	query := `UPDATE otps SET is_used = true WHERE user_id = $1 AND otp_type = $2 AND is_used = false`

	if _, err := r.db.Exec(ctx, query, userID, otpType); err != nil {
		r.log.Error("Failed to invalidate OTPs",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("invalidate OTPs of user %s: %w", userID.String(), err)
	}
	return nil
}

// DeleteStale removes used codes and codes expired more than a day ago.
func (r *otpRepository) DeleteStale(ctx context.Context) (int64, error) {
	query := `DELETE FROM otps WHERE is_used = true OR expires_at < NOW() - INTERVAL '1 day'`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		r.log.Error("Failed to delete stale OTPs", zap.Error(err))
		return 0, fmt.Errorf("delete stale OTPs: %w", err)
	}
	return result.RowsAffected(), nil
}
