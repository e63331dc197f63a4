package repository

import (
	"errors"

	"cleaning-booking/pkg/database"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	// ErrNoRowsAffected is returned when an update or delete matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate record")

	ErrCustomerOverlap = errors.New("customer already booked in this interval")
	ErrStaffOverlap    = errors.New("staff already booked in this interval")
	ErrStaffFull       = errors.New("staff fully booked for the day")
)

const (
	uniqueViolation    = "23505"
	exclusionViolation = "23P01"

	customerOverlapConstraint = "bookings_customer_no_overlap"
	staffOverlapConstraint    = "bookings_staff_no_overlap"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// overlapViolation maps an exclusion constraint failure to its sentinel.
func overlapViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != exclusionViolation {
		return nil
	}
	if pgErr.ConstraintName == staffOverlapConstraint {
		return ErrStaffOverlap
	}
	return ErrCustomerOverlap
}

type Repository struct {
	User           UserRepository
	Session        SessionRepository
	OTP            OTPRepository
	Service        ServiceRepository
	Staff          StaffRepository
	Booking        BookingRepository
	Review         ReviewRepository
	Payment        PaymentRepository
	WebhookEvent   WebhookEventRepository
	Retry          RetryRepository
	Notification   NotificationRepository
	Analytics      AnalyticsRepository
	Recommendation RecommendationRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:           NewUserRepository(db, log),
		Session:        NewSessionRepository(db, log),
		OTP:            NewOTPRepository(db, log),
		Service:        NewServiceRepository(db, log),
		Staff:          NewStaffRepository(db, log),
		Booking:        NewBookingRepository(db, log),
		Review:         NewReviewRepository(db, log),
		Payment:        NewPaymentRepository(db, log),
		WebhookEvent:   NewWebhookEventRepository(db, log),
		Retry:          NewRetryRepository(db, log),
		Notification:   NewNotificationRepository(db, log),
		Analytics:      NewAnalyticsRepository(db, log),
		Recommendation: NewRecommendationRepository(db, log),
	}
}
