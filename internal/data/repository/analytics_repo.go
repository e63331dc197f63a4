package repository

import (
	"context"
	"fmt"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// AnalyticsRepository runs the aggregate queries behind the admin dashboard.
// Periods are half-open: [from, to).
type AnalyticsRepository interface {
	StatusCounts(ctx context.Context, from, to time.Time) ([]entity.StatusCount, error)
	Totals(ctx context.Context, from, to time.Time) (*entity.DashboardTotals, error)
	TopServices(ctx context.Context, from, to time.Time, limit int) ([]entity.ServicePerformance, error)
	StaffPerformance(ctx context.Context, from, to time.Time, limit int) ([]entity.StaffPerformance, error)
	DailySeries(ctx context.Context, from, to time.Time) ([]entity.DailyPoint, error)
	InactiveCustomers(ctx context.Context, lastBookingBefore time.Time, limit int) ([]entity.CustomerActivity, error)
}

type analyticsRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAnalyticsRepository(db database.PgxIface, log *zap.Logger) AnalyticsRepository {
	return &analyticsRepository{
		db:  db,
		log: log.With(zap.String("repository", "analytics")),
	}
}

func (r *analyticsRepository) StatusCounts(ctx context.Context, from, to time.Time) ([]entity.StatusCount, error) {
	query := `
		SELECT status, COUNT(*)
		FROM bookings
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
		ORDER BY status
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		r.log.Error("Failed to count bookings by status", zap.Error(err))
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}

	counts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.StatusCount])
	if err != nil {
		return nil, fmt.Errorf("collect status counts: %w", err)
	}
	return counts, nil
}

func (r *analyticsRepository) Totals(ctx context.Context, from, to time.Time) (*entity.DashboardTotals, error) {
	query := `
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM payments
			 WHERE status = 'completed' AND paid_at >= $1 AND paid_at < $2),
			(SELECT COALESCE(AVG(rating), 0)::float8 FROM reviews
			 WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(DISTINCT user_id) FROM bookings
			 WHERE created_at >= $1 AND created_at < $2 AND status <> 'cancelled')
	`

	var totals entity.DashboardTotals
	err := r.db.QueryRow(ctx, query, from, to).Scan(
		&totals.Revenue,
		&totals.AverageRating,
		&totals.ActiveCustomers,
	)
	if err != nil {
		r.log.Error("Failed to compute dashboard totals", zap.Error(err))
		return nil, fmt.Errorf("dashboard totals: %w", err)
	}
	return &totals, nil
}

func (r *analyticsRepository) TopServices(ctx context.Context, from, to time.Time, limit int) ([]entity.ServicePerformance, error) {
	query := `
		SELECT s.id, s.name, COUNT(b.id) AS bookings,
		       COALESCE(SUM(p.amount), 0) AS revenue
		FROM services s
		JOIN bookings b ON b.service_id = s.id
		     AND b.created_at >= $1 AND b.created_at < $2
		     AND b.status <> 'cancelled'
		LEFT JOIN payments p ON p.booking_id = b.id AND p.status = 'completed'
		GROUP BY s.id, s.name
		ORDER BY bookings DESC, revenue DESC, s.name
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, from, to, limit)
	if err != nil {
		r.log.Error("Failed to rank services", zap.Error(err))
		return nil, fmt.Errorf("top services: %w", err)
	}

	services, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.ServicePerformance])
	if err != nil {
		return nil, fmt.Errorf("collect top services: %w", err)
	}
	return services, nil
}

func (r *analyticsRepository) StaffPerformance(ctx context.Context, from, to time.Time, limit int) ([]entity.StaffPerformance, error) {
	query := `
		SELECT sp.user_id, u.username, COUNT(b.id) AS completed,
		       sp.rating, COALESCE(SUM(b.total_price), 0) AS revenue
		FROM staff_profiles sp
		JOIN users u ON u.id = sp.user_id AND u.deleted_at IS NULL
		LEFT JOIN bookings b ON b.staff_id = sp.user_id
		     AND b.status = 'completed'
		     AND b.end_at >= $1 AND b.end_at < $2
		GROUP BY sp.user_id, u.username, sp.rating
		ORDER BY completed DESC, sp.rating DESC, u.username
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, from, to, limit)
	if err != nil {
		r.log.Error("Failed to compute staff performance", zap.Error(err))
		return nil, fmt.Errorf("staff performance: %w", err)
	}

	staff, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.StaffPerformance])
	if err != nil {
		return nil, fmt.Errorf("collect staff performance: %w", err)
	}
	return staff, nil
}

// DailySeries returns one point per day in the period, including empty days.
func (r *analyticsRepository) DailySeries(ctx context.Context, from, to time.Time) ([]entity.DailyPoint, error) {
	query := `
		WITH days AS (
			SELECT generate_series(date_trunc('day', $1::timestamptz),
			                       $2::timestamptz - interval '1 microsecond',
			                       interval '1 day') AS day
		),
		booked AS (
			SELECT date_trunc('day', created_at) AS day, COUNT(*) AS bookings
			FROM bookings
			WHERE created_at >= $1 AND created_at < $2 AND status <> 'cancelled'
			GROUP BY 1
		),
		paid AS (
			SELECT date_trunc('day', paid_at) AS day, SUM(amount) AS revenue
			FROM payments
			WHERE status = 'completed' AND paid_at >= $1 AND paid_at < $2
			GROUP BY 1
		)
		SELECT d.day, COALESCE(b.bookings, 0), COALESCE(p.revenue, 0)
		FROM days d
		LEFT JOIN booked b ON b.day = d.day
		LEFT JOIN paid p ON p.day = d.day
		ORDER BY d.day
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		r.log.Error("Failed to build daily series", zap.Error(err))
		return nil, fmt.Errorf("daily series: %w", err)
	}

	points, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.DailyPoint])
	if err != nil {
		return nil, fmt.Errorf("collect daily series: %w", err)
	}
	return points, nil
}

// InactiveCustomers lists customers whose most recent booking was made before the cutoff,
// longest inactive first.
func (r *analyticsRepository) InactiveCustomers(ctx context.Context, lastBookingBefore time.Time, limit int) ([]entity.CustomerActivity, error) {
	query := `
		SELECT u.id, u.username, u.email,
		       MAX(b.created_at) AS last_booking_at,
		       COUNT(DISTINCT b.id) AS total_bookings,
		       COALESCE((SELECT SUM(p.amount) FROM payments p
		                 JOIN bookings pb ON pb.id = p.booking_id
		                 WHERE pb.user_id = u.id AND p.status = 'completed'), 0) AS total_spent
		FROM users u
		JOIN bookings b ON b.user_id = u.id
		WHERE u.role = 'customer' AND u.deleted_at IS NULL AND u.is_active
		GROUP BY u.id, u.username, u.email
		HAVING MAX(b.created_at) < $1
		ORDER BY last_booking_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, lastBookingBefore, limit)
	if err != nil {
		r.log.Error("Failed to find inactive customers", zap.Error(err))
		return nil, fmt.Errorf("inactive customers: %w", err)
	}

	customers, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.CustomerActivity])
	if err != nil {
		return nil, fmt.Errorf("collect inactive customers: %w", err)
	}
	return customers, nil
}
