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

// CandidateQuery selects staff for a slot. DayStart/DayEnd bound the day
// used for the load count.
type CandidateQuery struct {
	Start          time.Time
	End            time.Time
	DayStart       time.Time
	DayEnd         time.Time
	ExcludeBooking uuid.UUID
	StaffID        *uuid.UUID
}

type StaffRepository interface {
	CreateIfMissing(ctx context.Context, profile *entity.StaffProfile) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StaffProfile, error)
	FindAll(ctx context.Context, specialization *string, available *bool, limit, offset int) ([]*entity.StaffProfile, error)
	CountAll(ctx context.Context, specialization *string, available *bool) (int64, error)
	Update(ctx context.Context, profile *entity.StaffProfile) error
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*entity.StaffCandidate, error)
	DailyCapacity(ctx context.Context) (int, error)
	RecalculateRating(ctx context.Context, staffID uuid.UUID) error
	IncrementCompletedJobs(ctx context.Context, staffID uuid.UUID) error
}

type staffRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewStaffRepository(db database.PgxIface, log *zap.Logger) StaffRepository {
	return &staffRepository{
		db:  db,
		log: log.With(zap.String("repository", "staff")),
	}
}

const staffColumns = `sp.user_id, sp.specializations, sp.bio, sp.is_available, sp.max_daily_bookings,
		       sp.rating, sp.total_reviews, sp.completed_jobs, sp.created_at, sp.updated_at,
		       u.username, u.email, u.phone`

const staffJoin = `FROM staff_profiles sp
		JOIN users u ON u.id = sp.user_id AND u.deleted_at IS NULL AND u.is_active AND u.role = 'staff'`

func staffScanTargets(p *entity.StaffProfile) []any {
	return []any{
		&p.UserID,
		&p.Specializations,
		&p.Bio,
		&p.IsAvailable,
		&p.MaxDailyBookings,
		&p.Rating,
		&p.TotalReviews,
		&p.CompletedJobs,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Username,
		&p.Email,
		&p.Phone,
	}
}

func (r *staffRepository) CreateIfMissing(ctx context.Context, profile *entity.StaffProfile) error {
	query := `
		INSERT INTO staff_profiles (user_id, specializations, bio, is_available,
		                            max_daily_bookings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		profile.UserID,
		profile.Specializations,
		profile.Bio,
		profile.IsAvailable,
		profile.MaxDailyBookings,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create staff profile", zap.Error(err), zap.String("user_id", profile.UserID.String()))
		return fmt.Errorf("create staff profile %s: %w", profile.UserID.String(), err)
	}
	return nil
}

func (r *staffRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StaffProfile, error) {
	query := `SELECT ` + staffColumns + ` ` + staffJoin + ` WHERE sp.user_id = $1`

	var p entity.StaffProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(staffScanTargets(&p)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find staff profile", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("find staff profile %s: %w", userID.String(), err)
	}
	return &p, nil
}

func (r *staffRepository) FindAll(ctx context.Context, specialization *string, available *bool, limit, offset int) ([]*entity.StaffProfile, error) {
	query := `
		SELECT ` + staffColumns + `
		` + staffJoin + `
		WHERE ($1::text IS NULL OR $1 = ANY(sp.specializations))
		  AND ($2::boolean IS NULL OR sp.is_available = $2)
		ORDER BY sp.rating DESC, u.username ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, specialization, available, limit, offset)
	if err != nil {
		r.log.Error("Failed to list staff", zap.Error(err))
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var profiles []*entity.StaffProfile
	for rows.Next() {
		var p entity.StaffProfile
		if err := rows.Scan(staffScanTargets(&p)...); err != nil {
			r.log.Error("Failed to scan staff row", zap.Error(err))
			return nil, fmt.Errorf("scan staff row: %w", err)
		}
		profiles = append(profiles, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff rows: %w", err)
	}
	return profiles, nil
}

func (r *staffRepository) CountAll(ctx context.Context, specialization *string, available *bool) (int64, error) {
	query := `
		SELECT COUNT(*)
		` + staffJoin + `
		WHERE ($1::text IS NULL OR $1 = ANY(sp.specializations))
		  AND ($2::boolean IS NULL OR sp.is_available = $2)
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, specialization, available).Scan(&count); err != nil {
		r.log.Error("Failed to count staff", zap.Error(err))
		return 0, fmt.Errorf("count staff: %w", err)
	}
	return count, nil
}

func (r *staffRepository) Update(ctx context.Context, profile *entity.StaffProfile) error {
	query := `
		UPDATE staff_profiles
		SET specializations = $2, bio = $3, is_available = $4,
		    max_daily_bookings = $5, updated_at = $6
		WHERE user_id = $1
	`

	result, err := r.db.Exec(ctx, query,
		profile.UserID,
		profile.Specializations,
		profile.Bio,
		profile.IsAvailable,
		profile.MaxDailyBookings,
		profile.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update staff profile", zap.Error(err), zap.String("user_id", profile.UserID.String()))
		return fmt.Errorf("update staff profile %s: %w", profile.UserID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update staff profile %s: %w", profile.UserID.String(), ErrNoRowsAffected)
	}
	return nil
}

// FindCandidates returns active staff with their load on the day and whether
// they already hold an active booking overlapping [Start, End).
func (r *staffRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]*entity.StaffCandidate, error) {
	query := `
		SELECT ` + staffColumns + `,
		       COUNT(b.id) FILTER (WHERE b.start_at >= $3 AND b.start_at < $4) AS day_load,
		       COALESCE(BOOL_OR(b.start_at < $2 AND b.end_at > $1), false) AS has_conflict
		` + staffJoin + `
		LEFT JOIN bookings b ON b.staff_id = sp.user_id
		      AND b.status IN ('pending', 'confirmed', 'in_progress')
		      AND b.id <> $5
		WHERE ($6::uuid IS NULL OR sp.user_id = $6)
		GROUP BY sp.user_id, u.id
		ORDER BY sp.user_id
	`

	rows, err := r.db.Query(ctx, query, q.Start, q.End, q.DayStart, q.DayEnd, q.ExcludeBooking, q.StaffID)
	if err != nil {
		r.log.Error("Failed to find staff candidates", zap.Error(err))
		return nil, fmt.Errorf("find staff candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*entity.StaffCandidate
	for rows.Next() {
		var (
			p        entity.StaffProfile
			dayLoad  int
			conflict bool
		)
		targets := append(staffScanTargets(&p), &dayLoad, &conflict)
		if err := rows.Scan(targets...); err != nil {
			r.log.Error("Failed to scan staff candidate row", zap.Error(err))
			return nil, fmt.Errorf("scan staff candidate row: %w", err)
		}
		candidates = append(candidates, &entity.StaffCandidate{
			Profile:     &p,
			DayLoad:     dayLoad,
			HasConflict: conflict,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff candidate rows: %w", err)
	}
	return candidates, nil
}

// DailyCapacity is the sum of max_daily_bookings over available staff.
func (r *staffRepository) DailyCapacity(ctx context.Context) (int, error) {
	query := `
		SELECT COALESCE(SUM(sp.max_daily_bookings), 0)
		` + staffJoin + `
		WHERE sp.is_available
	`

	var capacity int
	if err := r.db.QueryRow(ctx, query).Scan(&capacity); err != nil {
		r.log.Error("Failed to compute daily capacity", zap.Error(err))
		return 0, fmt.Errorf("daily capacity: %w", err)
	}
	return capacity, nil
}

func (r *staffRepository) RecalculateRating(ctx context.Context, staffID uuid.UUID) error {
	query := `
		UPDATE staff_profiles sp
		SET rating = COALESCE(stats.avg_rating, 0),
		    total_reviews = stats.total,
		    updated_at = NOW()
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 2) AS avg_rating, COUNT(*) AS total
			FROM reviews
			WHERE staff_id = $1
		) stats
		WHERE sp.user_id = $1
	`

	if _, err := r.db.Exec(ctx, query, staffID); err != nil {
		r.log.Error("Failed to recalculate staff rating", zap.Error(err), zap.String("staff_id", staffID.String()))
		return fmt.Errorf("recalculate rating of staff %s: %w", staffID.String(), err)
	}
	return nil
}

func (r *staffRepository) IncrementCompletedJobs(ctx context.Context, staffID uuid.UUID) error {
	query := `UPDATE staff_profiles SET completed_jobs = completed_jobs + 1, updated_at = NOW() WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, query, staffID); err != nil {
		r.log.Error("Failed to increment completed jobs", zap.Error(err), zap.String("staff_id", staffID.String()))
		return fmt.Errorf("increment completed jobs of staff %s: %w", staffID.String(), err)
	}
	return nil
}
