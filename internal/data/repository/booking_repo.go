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

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking, dayStart, dayEnd time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindDetailByID(ctx context.Context, id uuid.UUID) (*entity.BookingDetail, error)
	FindAll(ctx context.Context, filter entity.BookingFilter, limit, offset int) ([]*entity.BookingDetail, error)
	CountAll(ctx context.Context, filter entity.BookingFilter) (int64, error)

	// Business queries
	HasUserConflict(ctx context.Context, userID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error)
	CountActiveBetween(ctx context.Context, from, to time.Time) (int, error)
	CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int, error)
	FindStaffSlots(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]entity.TimeSlot, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, reason *string) (bool, error)
	AssignStaff(ctx context.Context, id, staffID uuid.UUID, dayStart, dayEnd time.Time) error
	FindDueReminders(ctx context.Context, from, to time.Time) ([]*entity.Booking, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	CancelStalePending(ctx context.Context, createdBefore time.Time, reason string) ([]*entity.Booking, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `b.id, b.order_id, b.user_id, b.service_id, b.staff_id, b.start_at, b.end_at,
		       b.address, b.notes, b.base_price, b.total_price, b.status, b.cancellation_reason,
		       b.reminder_sent_at, b.created_at, b.updated_at`

const bookingDetailColumns = bookingColumns + `,
		       s.name, s.category, cu.username, st.username`

const bookingDetailJoin = `FROM bookings b
		JOIN services s ON s.id = b.service_id
		JOIN users cu ON cu.id = b.user_id
		LEFT JOIN users st ON st.id = b.staff_id`

func bookingScanTargets(b *entity.Booking) []any {
	return []any{
		&b.ID,
		&b.OrderID,
		&b.UserID,
		&b.ServiceID,
		&b.StaffID,
		&b.StartAt,
		&b.EndAt,
		&b.Address,
		&b.Notes,
		&b.BasePrice,
		&b.TotalPrice,
		&b.Status,
		&b.CancellationReason,
		&b.ReminderSentAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	}
}

func scanBookingDetail(row pgx.Row) (*entity.BookingDetail, error) {
	var d entity.BookingDetail
	targets := append(bookingScanTargets(&d.Booking),
		&d.ServiceName,
		&d.ServiceCategory,
		&d.CustomerName,
		&d.StaffName,
	)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *bookingRepository) collectBookings(rows pgx.Rows) ([]*entity.Booking, error) {
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		var booking entity.Booking
		if err := rows.Scan(bookingScanTargets(&booking)...); err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, &booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}
	return bookings, nil
}

// Create inserts the booking inside a transaction that holds advisory locks on
// the customer and, when present, the staff member. Overlaps and the staff daily
// cap are checked again under those locks, so concurrent requests for the same
// interval serialise and only one wins.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking, dayStart, dayEnd time.Time) error {
	query := `
		INSERT INTO bookings (id, order_id, user_id, service_id, staff_id, start_at, end_at,
		                      address, notes, base_price, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockKey(ctx, tx, booking.UserID); err != nil {
			return err
		}

		var overlap bool
		if err := tx.QueryRow(ctx, userOverlapQuery, booking.UserID, booking.StartAt, booking.EndAt, uuid.Nil).Scan(&overlap); err != nil {
			return fmt.Errorf("check customer overlap: %w", err)
		}
		if overlap {
			return ErrCustomerOverlap
		}

		if booking.StaffID != nil {
			if err := reserveStaff(ctx, tx, *booking.StaffID, booking.ID, booking.StartAt, booking.EndAt, dayStart, dayEnd); err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx, query,
			booking.ID,
			booking.OrderID,
			booking.UserID,
			booking.ServiceID,
			booking.StaffID,
			booking.StartAt,
			booking.EndAt,
			booking.Address,
			booking.Notes,
			booking.BasePrice,
			booking.TotalPrice,
			booking.Status,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		return err
	})

	if sentinel := bookingConflict(err); sentinel != nil {
		return fmt.Errorf("create booking %s: %w", booking.OrderID, sentinel)
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("order_id", booking.OrderID),
			zap.String("user_id", booking.UserID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.OrderID, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1`

	var booking entity.Booking
	err := r.db.QueryRow(ctx, query, id).Scan(bookingScanTargets(&booking)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return &booking, nil
}

func (r *bookingRepository) FindDetailByID(ctx context.Context, id uuid.UUID) (*entity.BookingDetail, error) {
	query := `SELECT ` + bookingDetailColumns + ` ` + bookingDetailJoin + ` WHERE b.id = $1`

	detail, err := scanBookingDetail(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking detail",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking detail %s: %w", id.String(), err)
	}
	return detail, nil
}

const bookingFilterWhere = `
		WHERE ($1::uuid IS NULL OR b.user_id = $1)
		  AND ($2::uuid IS NULL OR b.staff_id = $2)
		  AND ($3::text IS NULL OR b.status = $3)`

func (r *bookingRepository) FindAll(ctx context.Context, filter entity.BookingFilter, limit, offset int) ([]*entity.BookingDetail, error) {
	query := `SELECT ` + bookingDetailColumns + ` ` + bookingDetailJoin + bookingFilterWhere + `
		ORDER BY b.start_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.Query(ctx, query, filter.UserID, filter.StaffID, filter.Status, limit, offset)
	if err != nil {
		r.log.Error("Failed to list bookings",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.BookingDetail
	for rows.Next() {
		detail, err := scanBookingDetail(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountAll(ctx context.Context, filter entity.BookingFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings b` + bookingFilterWhere

	var count int64
	if err := r.db.QueryRow(ctx, query, filter.UserID, filter.StaffID, filter.Status).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings", zap.Error(err))
		return 0, fmt.Errorf("count bookings: %w", err)
	}

	return count, nil
}

const userOverlapQuery = `
	SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE user_id = $1
		  AND id <> $4
		  AND status IN ('pending', 'confirmed', 'in_progress')
		  AND start_at < $3 AND end_at > $2
	)
`

// HasUserConflict reports whether the customer already holds an active booking overlapping [start, end).
func (r *bookingRepository) HasUserConflict(ctx context.Context, userID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, userOverlapQuery, userID, start, end, exclude).Scan(&exists); err != nil {
		r.log.Error("Failed to check customer conflicts", zap.Error(err), zap.String("user_id", userID.String()))
		return false, fmt.Errorf("check conflicts of user %s: %w", userID.String(), err)
	}
	return exists, nil
}

func (r *bookingRepository) CountActiveBetween(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE status IN ('pending', 'confirmed', 'in_progress')
		  AND start_at >= $1 AND start_at < $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		r.log.Error("Failed to count active bookings", zap.Error(err))
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return count, nil
}

func (r *bookingRepository) CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND status = 'completed'`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count completed bookings", zap.Error(err), zap.String("user_id", userID.String()))
		return 0, fmt.Errorf("count completed bookings of user %s: %w", userID.String(), err)
	}
	return count, nil
}

func (r *bookingRepository) FindStaffSlots(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]entity.TimeSlot, error) {
	query := `
		SELECT id, start_at, end_at FROM bookings
		WHERE staff_id = $1
		  AND status IN ('pending', 'confirmed', 'in_progress')
		  AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`

	rows, err := r.db.Query(ctx, query, staffID, from, to)
	if err != nil {
		r.log.Error("Failed to find staff slots", zap.Error(err), zap.String("staff_id", staffID.String()))
		return nil, fmt.Errorf("find slots of staff %s: %w", staffID.String(), err)
	}

	slots, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entity.TimeSlot])
	if err != nil {
		return nil, fmt.Errorf("collect staff slots: %w", err)
	}
	return slots, nil
}

// UpdateStatus moves the booking from one status to another. It returns
// false when the booking was no longer in the from status.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, reason *string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3,
		    cancellation_reason = COALESCE($4, cancellation_reason),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, id, from, to, reason)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update status of booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

// AssignStaff sets the staff member under the staff advisory lock, re-checking
// overlap and the daily cap for the day [dayStart, dayEnd).
func (r *bookingRepository) AssignStaff(ctx context.Context, id, staffID uuid.UUID, dayStart, dayEnd time.Time) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockKey(ctx, tx, staffID); err != nil {
			return err
		}

		var start, end time.Time
		err := tx.QueryRow(ctx, `
			SELECT start_at, end_at FROM bookings
			WHERE id = $1 AND status IN ('pending', 'confirmed')
			FOR UPDATE
		`, id).Scan(&start, &end)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoRowsAffected
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}

		if err := reserveStaff(ctx, tx, staffID, id, start, end, dayStart, dayEnd); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE bookings SET staff_id = $2, updated_at = NOW() WHERE id = $1`, id, staffID)
		return err
	})

	if errors.Is(err, ErrNoRowsAffected) {
		return fmt.Errorf("assign staff to booking %s: %w", id.String(), ErrNoRowsAffected)
	}
	if sentinel := bookingConflict(err); sentinel != nil {
		return fmt.Errorf("assign staff to booking %s: %w", id.String(), sentinel)
	}
	if err != nil {
		r.log.Error("Failed to assign staff",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("staff_id", staffID.String()),
		)
		return fmt.Errorf("assign staff to booking %s: %w", id.String(), err)
	}
	return nil
}

// lockKey takes a transaction scoped advisory lock keyed on the id.
func lockKey(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, id.String()); err != nil {
		return fmt.Errorf("lock %s: %w", id.String(), err)
	}
	return nil
}

// reserveStaff fails with ErrStaffOverlap or ErrStaffFull when the staff member
// cannot take [start, end). The caller must hold the staff lock.
func reserveStaff(ctx context.Context, tx pgx.Tx, staffID, exclude uuid.UUID, start, end, dayStart, dayEnd time.Time) error {
	query := `
		SELECT
			EXISTS (
				SELECT 1 FROM bookings
				WHERE staff_id = $1 AND id <> $2
				  AND status IN ('pending', 'confirmed', 'in_progress')
				  AND start_at < $4 AND end_at > $3
			),
			(SELECT COUNT(*) FROM bookings
			 WHERE staff_id = $1 AND id <> $2
			   AND status IN ('pending', 'confirmed', 'in_progress')
			   AND start_at >= $5 AND start_at < $6),
			(SELECT max_daily_bookings FROM staff_profiles WHERE user_id = $1)
	`

	var (
		overlap  bool
		load     int
		maxDaily *int
	)
	if err := tx.QueryRow(ctx, query, staffID, exclude, start, end, dayStart, dayEnd).Scan(&overlap, &load, &maxDaily); err != nil {
		return fmt.Errorf("check staff %s: %w", staffID.String(), err)
	}
	if overlap {
		return ErrStaffOverlap
	}
	if maxDaily != nil && load >= *maxDaily {
		return ErrStaffFull
	}
	return nil
}

// bookingConflict returns the overlap sentinel carried by err, if any.
func bookingConflict(err error) error {
	for _, sentinel := range []error{ErrCustomerOverlap, ErrStaffOverlap, ErrStaffFull} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return overlapViolation(err)
}

func (r *bookingRepository) FindDueReminders(ctx context.Context, from, to time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.status = 'confirmed'
		  AND b.reminder_sent_at IS NULL
		  AND b.start_at >= $1 AND b.start_at < $2
		ORDER BY b.start_at
	`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		r.log.Error("Failed to find due reminders", zap.Error(err))
		return nil, fmt.Errorf("find due reminders: %w", err)
	}
	return r.collectBookings(rows)
}

// MarkReminderSent stamps the booking once; a second call returns false.
func (r *bookingRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE bookings SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`

	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		r.log.Error("Failed to mark reminder sent", zap.Error(err), zap.String("booking_id", id.String()))
		return false, fmt.Errorf("mark reminder of booking %s: %w", id.String(), err)
	}
	return result.RowsAffected() == 1, nil
}

// CancelStalePending cancels pending bookings created before the cutoff and returns them.
func (r *bookingRepository) CancelStalePending(ctx context.Context, createdBefore time.Time, reason string) ([]*entity.Booking, error) {
	query := `
		UPDATE bookings b
		SET status = 'cancelled', cancellation_reason = $2, updated_at = NOW()
		WHERE b.status = 'pending' AND b.created_at < $1
		RETURNING ` + bookingColumns

	rows, err := r.db.Query(ctx, query, createdBefore, reason)
	if err != nil {
		r.log.Error("Failed to cancel stale bookings", zap.Error(err))
		return nil, fmt.Errorf("cancel stale bookings: %w", err)
	}
	return r.collectBookings(rows)
}
