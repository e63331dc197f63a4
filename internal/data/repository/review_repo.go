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

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error)
	FindByService(ctx context.Context, serviceID uuid.UUID, limit, offset int) ([]*entity.Review, error)
	CountByService(ctx context.Context, serviceID uuid.UUID) (int64, error)
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Review, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	StatsByService(ctx context.Context, serviceID uuid.UUID) (*entity.ReviewStats, error)
	Update(ctx context.Context, review *entity.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type reviewRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReviewRepository(db database.PgxIface, log *zap.Logger) ReviewRepository {
	return &reviewRepository{
		db:  db,
		log: log.With(zap.String("repository", "review")),
	}
}

const reviewColumns = `r.id, r.booking_id, r.user_id, r.service_id, r.staff_id, r.rating, r.comment,
		       r.created_at, r.updated_at, u.username`

const reviewJoin = `FROM reviews r JOIN users u ON u.id = r.user_id`

func scanReview(row pgx.Row) (*entity.Review, error) {
	var review entity.Review
	err := row.Scan(
		&review.ID,
		&review.BookingID,
		&review.UserID,
		&review.ServiceID,
		&review.StaffID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
		&review.Username,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Create returns ErrDuplicate when the booking already has a review.
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, user_id, service_id, staff_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		review.ID,
		review.BookingID,
		review.UserID,
		review.ServiceID,
		review.StaffID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("review for booking %s: %w", review.BookingID.String(), ErrDuplicate)
		}
		r.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("booking_id", review.BookingID.String()),
		)
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) findOne(ctx context.Context, where string, arg any) (*entity.Review, error) {
	query := `SELECT ` + reviewColumns + ` ` + reviewJoin + ` WHERE ` + where

	review, err := scanReview(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find review", zap.Error(err), zap.String("where", where))
		return nil, fmt.Errorf("find review (%s): %w", where, err)
	}
	return review, nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	return r.findOne(ctx, "r.id = $1", id)
}

func (r *reviewRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	return r.findOne(ctx, "r.booking_id = $1", bookingID)
}

func (r *reviewRepository) list(ctx context.Context, where string, arg any, limit, offset int) ([]*entity.Review, error) {
	query := `SELECT ` + reviewColumns + ` ` + reviewJoin + ` WHERE ` + where + `
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, arg, limit, offset)
	if err != nil {
		r.log.Error("Failed to list reviews", zap.Error(err), zap.String("where", where))
		return nil, fmt.Errorf("list reviews (%s): %w", where, err)
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			r.log.Error("Failed to scan review row", zap.Error(err))
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

func (r *reviewRepository) count(ctx context.Context, where string, arg any) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reviews r WHERE `+where, arg).Scan(&count); err != nil {
		r.log.Error("Failed to count reviews", zap.Error(err), zap.String("where", where))
		return 0, fmt.Errorf("count reviews (%s): %w", where, err)
	}
	return count, nil
}

func (r *reviewRepository) FindByService(ctx context.Context, serviceID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	return r.list(ctx, "r.service_id = $1", serviceID, limit, offset)
}

func (r *reviewRepository) CountByService(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	return r.count(ctx, "r.service_id = $1", serviceID)
}

func (r *reviewRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	return r.list(ctx, "r.user_id = $1", userID, limit, offset)
}

func (r *reviewRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.count(ctx, "r.user_id = $1", userID)
}

func (r *reviewRepository) StatsByService(ctx context.Context, serviceID uuid.UUID) (*entity.ReviewStats, error) {
	query := `SELECT rating, COUNT(*) FROM reviews WHERE service_id = $1 GROUP BY rating`

	rows, err := r.db.Query(ctx, query, serviceID)
	if err != nil {
		r.log.Error("Failed to get review stats", zap.Error(err), zap.String("service_id", serviceID.String()))
		return nil, fmt.Errorf("review stats of service %s: %w", serviceID.String(), err)
	}
	defer rows.Close()

	stats := &entity.ReviewStats{Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var sum int64
	for rows.Next() {
		var rating int
		var count int64
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan review stats row: %w", err)
		}
		stats.Distribution[rating] = count
		stats.Count += count
		sum += int64(rating) * count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review stats rows: %w", err)
	}

	if stats.Count > 0 {
		stats.Average = float64(sum) / float64(stats.Count)
	}
	return stats, nil
}

func (r *reviewRepository) Update(ctx context.Context, review *entity.Review) error {
	query := `UPDATE reviews SET rating = $2, comment = $3, updated_at = $4 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, review.ID, review.Rating, review.Comment, review.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to update review", zap.Error(err), zap.String("review_id", review.ID.String()))
		return fmt.Errorf("update review %s: %w", review.ID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update review %s: %w", review.ID.String(), ErrNoRowsAffected)
	}
	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete review", zap.Error(err), zap.String("review_id", id.String()))
		return fmt.Errorf("delete review %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete review %s: %w", id.String(), ErrNoRowsAffected)
	}
	return nil
}
