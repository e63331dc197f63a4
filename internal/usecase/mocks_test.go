package usecase

import (
	"context"
	"sync"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/pkg/notify"
	"cleaning-booking/pkg/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBookingRepository is a mock implementation of repository.BookingRepository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *entity.Booking, dayStart, dayEnd time.Time) error {
	return m.Called(ctx, booking, dayStart, dayEnd).Error(0)
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindDetailByID(ctx context.Context, id uuid.UUID) (*entity.BookingDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.BookingDetail), args.Error(1)
}

func (m *MockBookingRepository) FindAll(ctx context.Context, filter entity.BookingFilter, limit, offset int) ([]*entity.BookingDetail, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]*entity.BookingDetail), args.Error(1)
}

func (m *MockBookingRepository) CountAll(ctx context.Context, filter entity.BookingFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepository) HasUserConflict(ctx context.Context, userID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, start, end, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) CountActiveBetween(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepository) CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepository) FindStaffSlots(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]entity.TimeSlot, error) {
	args := m.Called(ctx, staffID, from, to)
	return args.Get(0).([]entity.TimeSlot), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, reason *string) (bool, error) {
	args := m.Called(ctx, id, from, to, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) AssignStaff(ctx context.Context, id, staffID uuid.UUID, dayStart, dayEnd time.Time) error {
	return m.Called(ctx, id, staffID, dayStart, dayEnd).Error(0)
}

func (m *MockBookingRepository) FindDueReminders(ctx context.Context, from, to time.Time) ([]*entity.Booking, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]*entity.Booking), args.Error(1)
}

func (m *MockBookingRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) CancelStalePending(ctx context.Context, createdBefore time.Time, reason string) ([]*entity.Booking, error) {
	args := m.Called(ctx, createdBefore, reason)
	return args.Get(0).([]*entity.Booking), args.Error(1)
}

// MockServiceRepository is a mock implementation of repository.ServiceRepository
type MockServiceRepository struct {
	mock.Mock
}

func (m *MockServiceRepository) Create(ctx context.Context, svc *entity.CleaningService) error {
	return m.Called(ctx, svc).Error(0)
}

func (m *MockServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.CleaningService, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CleaningService), args.Error(1)
}

func (m *MockServiceRepository) FindAll(ctx context.Context, category *entity.ServiceCategory, activeOnly bool, limit, offset int) ([]*entity.CleaningService, error) {
	args := m.Called(ctx, category, activeOnly, limit, offset)
	return args.Get(0).([]*entity.CleaningService), args.Error(1)
}

func (m *MockServiceRepository) CountAll(ctx context.Context, category *entity.ServiceCategory, activeOnly bool) (int64, error) {
	args := m.Called(ctx, category, activeOnly)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockServiceRepository) Update(ctx context.Context, svc *entity.CleaningService) error {
	return m.Called(ctx, svc).Error(0)
}

func (m *MockServiceRepository) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	return m.Called(ctx, id, imageURL).Error(0)
}

func (m *MockServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockStaffRepository is a mock implementation of repository.StaffRepository
type MockStaffRepository struct {
	mock.Mock
}

func (m *MockStaffRepository) CreateIfMissing(ctx context.Context, profile *entity.StaffProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockStaffRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StaffProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StaffProfile), args.Error(1)
}

func (m *MockStaffRepository) FindAll(ctx context.Context, specialization *string, available *bool, limit, offset int) ([]*entity.StaffProfile, error) {
	args := m.Called(ctx, specialization, available, limit, offset)
	return args.Get(0).([]*entity.StaffProfile), args.Error(1)
}

func (m *MockStaffRepository) CountAll(ctx context.Context, specialization *string, available *bool) (int64, error) {
	args := m.Called(ctx, specialization, available)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStaffRepository) Update(ctx context.Context, profile *entity.StaffProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockStaffRepository) FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]*entity.StaffCandidate, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]*entity.StaffCandidate), args.Error(1)
}

func (m *MockStaffRepository) DailyCapacity(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStaffRepository) RecalculateRating(ctx context.Context, staffID uuid.UUID) error {
	return m.Called(ctx, staffID).Error(0)
}

func (m *MockStaffRepository) IncrementCompletedJobs(ctx context.Context, staffID uuid.UUID) error {
	return m.Called(ctx, staffID).Error(0)
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, role *entity.UserRole, limit, offset int) ([]*entity.User, error) {
	args := m.Called(ctx, role, limit, offset)
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) CountAll(ctx context.Context, role *entity.UserRole) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role entity.UserRole) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockReviewRepository is a mock implementation of repository.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *MockReviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewRepository) FindByService(ctx context.Context, serviceID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	args := m.Called(ctx, serviceID, limit, offset)
	return args.Get(0).([]*entity.Review), args.Error(1)
}

func (m *MockReviewRepository) CountByService(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, serviceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*entity.Review), args.Error(1)
}

func (m *MockReviewRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewRepository) StatsByService(ctx context.Context, serviceID uuid.UUID) (*entity.ReviewStats, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ReviewStats), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *entity.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockPaymentRepository is a mock implementation of repository.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindPendingByBooking(ctx context.Context, bookingID uuid.UUID, method entity.PaymentMethod) (*entity.Payment, error) {
	args := m.Called(ctx, bookingID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindLatestByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) CompleteAndConfirmBooking(ctx context.Context, paymentID, bookingID uuid.UUID, paidAt time.Time, providerRef *string) (*repository.Settlement, error) {
	args := m.Called(ctx, paymentID, bookingID, paidAt, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Settlement), args.Error(1)
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID, providerRef *string) (bool, error) {
	args := m.Called(ctx, id, providerRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockWebhookEventRepository is a mock implementation of repository.WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Record(ctx context.Context, event *entity.WebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) MarkStatus(ctx context.Context, provider, eventID, status string) error {
	return m.Called(ctx, provider, eventID, status).Error(0)
}

func (m *MockWebhookEventRepository) Forget(ctx context.Context, provider, eventID string) error {
	return m.Called(ctx, provider, eventID).Error(0)
}

// MockRetryRepository is a mock implementation of repository.RetryRepository
type MockRetryRepository struct {
	mock.Mock
}

func (m *MockRetryRepository) Create(ctx context.Context, rt *entity.WebhookRetry) error {
	return m.Called(ctx, rt).Error(0)
}

func (m *MockRetryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.WebhookRetry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.WebhookRetry), args.Error(1)
}

func (m *MockRetryRepository) ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*entity.WebhookRetry, error) {
	args := m.Called(ctx, now, staleBefore, limit)
	return args.Get(0).([]*entity.WebhookRetry), args.Error(1)
}

func (m *MockRetryRepository) Update(ctx context.Context, update entity.RetryUpdate) error {
	return m.Called(ctx, update).Error(0)
}

func (m *MockRetryRepository) FindAll(ctx context.Context, status *entity.RetryStatus, limit, offset int) ([]*entity.WebhookRetry, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*entity.WebhookRetry), args.Error(1)
}

func (m *MockRetryRepository) CountAll(ctx context.Context, status *entity.RetryStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRetryRepository) Requeue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

// MockNotificationRepository is a mock implementation of repository.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Notification), args.Error(1)
}

func (m *MockNotificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.NotificationStatus, errMsg *string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *MockNotificationRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*entity.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockGateway is a mock implementation of payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *MockGateway) ParseWebhook(body []byte, signatureHeader string) (*payment.WebhookEvent, error) {
	args := m.Called(body, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}

// recordingPublisher keeps published event types in order.
type recordingPublisher struct {
	mu       sync.Mutex
	types    []string
	payloads []any
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

// recordingSender captures messages instead of delivering them.
type recordingSender struct {
	channel string
	err     error
	sent    []notify.Message
}

func (s *recordingSender) Channel() string { return s.channel }

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *entity.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) FindValidSession(ctx context.Context, token uuid.UUID) (*entity.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, token uuid.UUID) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockSessionRepository) RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockSessionRepository) CleanExpiredSessions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockOTPRepository is a mock implementation of repository.OTPRepository
type MockOTPRepository struct {
	mock.Mock
}

func (m *MockOTPRepository) Create(ctx context.Context, otp *entity.OTP) error {
	return m.Called(ctx, otp).Error(0)
}

func (m *MockOTPRepository) FindActiveOTP(ctx context.Context, email string, otpType entity.OTPType) (*entity.OTP, error) {
	args := m.Called(ctx, email, otpType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OTP), args.Error(1)
}

func (m *MockOTPRepository) RecordFailedAttempt(ctx context.Context, otpID uuid.UUID, maxAttempts int) (int, error) {
	args := m.Called(ctx, otpID, maxAttempts)
	return args.Int(0), args.Error(1)
}

func (m *MockOTPRepository) MarkAsUsed(ctx context.Context, otpID uuid.UUID) error {
	return m.Called(ctx, otpID).Error(0)
}

func (m *MockOTPRepository) InvalidateActive(ctx context.Context, userID uuid.UUID, otpType entity.OTPType) error {
	return m.Called(ctx, userID, otpType).Error(0)
}

func (m *MockOTPRepository) DeleteStale(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAnalyticsRepository is a mock implementation of repository.AnalyticsRepository
type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) StatusCounts(ctx context.Context, from, to time.Time) ([]entity.StatusCount, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]entity.StatusCount), args.Error(1)
}

func (m *MockAnalyticsRepository) Totals(ctx context.Context, from, to time.Time) (*entity.DashboardTotals, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DashboardTotals), args.Error(1)
}

func (m *MockAnalyticsRepository) TopServices(ctx context.Context, from, to time.Time, limit int) ([]entity.ServicePerformance, error) {
	args := m.Called(ctx, from, to, limit)
	return args.Get(0).([]entity.ServicePerformance), args.Error(1)
}

func (m *MockAnalyticsRepository) StaffPerformance(ctx context.Context, from, to time.Time, limit int) ([]entity.StaffPerformance, error) {
	args := m.Called(ctx, from, to, limit)
	return args.Get(0).([]entity.StaffPerformance), args.Error(1)
}

func (m *MockAnalyticsRepository) DailySeries(ctx context.Context, from, to time.Time) ([]entity.DailyPoint, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]entity.DailyPoint), args.Error(1)
}

func (m *MockAnalyticsRepository) InactiveCustomers(ctx context.Context, lastBookingBefore time.Time, limit int) ([]entity.CustomerActivity, error) {
	args := m.Called(ctx, lastBookingBefore, limit)
	return args.Get(0).([]entity.CustomerActivity), args.Error(1)
}

// recordingMailer captures outgoing emails. The channel lets tests wait on
// mail sent from a goroutine.
type recordingMailer struct {
	subjects chan string
	bodies   chan string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{subjects: make(chan string, 8), bodies: make(chan string, 8)}
}

func (m *recordingMailer) SendEmail(_ context.Context, _ *uuid.UUID, _, subject, body, _ string) error {
	m.subjects <- subject
	m.bodies <- body
	return nil
}
