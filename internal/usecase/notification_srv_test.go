package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/events"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/notify"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type notificationFixture struct {
	svc           *notificationService
	notifications *MockNotificationRepository
	users         *MockUserRepository
	bookings      *MockBookingRepository
	mailer        *recordingSender
	sms           *recordingSender
	retry         *queuedRetry
}

func newNotificationFixture() *notificationFixture {
	f := &notificationFixture{
		notifications: new(MockNotificationRepository),
		users:         new(MockUserRepository),
		bookings:      new(MockBookingRepository),
		mailer:        &recordingSender{channel: notify.ChannelEmail},
		sms:           &recordingSender{channel: notify.ChannelSMS},
		retry:         &queuedRetry{},
	}
	f.svc = &notificationService{
		notifications: f.notifications,
		users:         f.users,
		bookings:      f.bookings,
		mailer:        f.mailer,
		sms:           f.sms,
		retry:         f.retry,
		metrics:       metrics.New(),
		loc:           time.UTC,
		log:           zap.NewNop(),
		now:           func() time.Time { return fixedNow },
	}
	return f
}

func mustEvent(t *testing.T, eventType string, payload any) events.Event {
	t.Helper()
	e, err := events.NewEvent(eventType, payload)
	require.NoError(t, err)
	return e
}

func TestNotificationService_Handle_Confirmed(t *testing.T) {
	f := newNotificationFixture()
	phone := gofakeit.Phone()
	customer := &entity.User{Base: entity.Base{ID: uuid.New()}, Username: gofakeit.Username(), Email: gofakeit.Email(), Phone: &phone}
	staffName := "Ana"
	detail := &entity.BookingDetail{
		Booking: entity.Booking{
			BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
			OrderID:      "ORD-1",
			UserID:       customer.ID,
			StartAt:      time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC),
			TotalPrice:   decimal.RequireFromString("172.50"),
		},
		ServiceName: "Deep clean",
		StaffName:   &staffName,
	}

	f.bookings.On("FindDetailByID", mock.Anything, detail.ID).Return(detail, nil)
	f.users.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	f.notifications.On("Create", mock.Anything, mock.MatchedBy(func(n *entity.Notification) bool {
		return n.Status == entity.NotificationSent && n.EventType == events.BookingConfirmed
	})).Return(nil).Twice()

	err := f.svc.Handle(context.Background(), mustEvent(t, events.BookingConfirmed, events.BookingPayload{
		BookingID: detail.ID,
		UserID:    customer.ID,
	}))
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, customer.Email, f.mailer.sent[0].To)
	assert.Equal(t, "Booking ORD-1 confirmed", f.mailer.sent[0].Subject)
	assert.Contains(t, f.mailer.sent[0].Body, "Wed 11/06/2025 10:00")
	assert.Contains(t, f.mailer.sent[0].Body, "Ana will be there")

	require.Len(t, f.sms.sent, 1)
	assert.Equal(t, phone, f.sms.sent[0].To)
	f.notifications.AssertExpectations(t)
}

func TestNotificationService_Handle_AssignedGoesToStaff(t *testing.T) {
	f := newNotificationFixture()
	cleaner := &entity.User{Base: entity.Base{ID: uuid.New()}, Username: "cleaner", Email: gofakeit.Email()}
	detail := &entity.BookingDetail{Booking: entity.Booking{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, UserID: uuid.New()}}

	f.bookings.On("FindDetailByID", mock.Anything, detail.ID).Return(detail, nil)
	f.users.On("FindByID", mock.Anything, cleaner.ID).Return(cleaner, nil)
	f.notifications.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := f.svc.Handle(context.Background(), mustEvent(t, events.BookingAssigned, events.BookingPayload{
		BookingID: detail.ID,
		UserID:    detail.UserID,
		StaffID:   &cleaner.ID,
	}))
	require.NoError(t, err)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, cleaner.Email, f.mailer.sent[0].To)
	assert.Empty(t, f.sms.sent)
}

func TestNotificationService_Handle_UnknownEvent(t *testing.T) {
	f := newNotificationFixture()
	err := f.svc.Handle(context.Background(), mustEvent(t, "inventory.updated", map[string]string{}))
	assert.NoError(t, err)
	assert.Empty(t, f.mailer.sent)
}

func TestNotificationService_SendEmail_FailureIsQueued(t *testing.T) {
	f := newNotificationFixture()
	f.mailer.err = errors.New("smtp: connection refused")
	f.notifications.On("Create", mock.Anything, mock.MatchedBy(func(n *entity.Notification) bool {
		return n.Status == entity.NotificationFailed && n.Error != nil
	})).Return(nil)

	err := f.svc.SendEmail(context.Background(), nil, "someone@example.com", "Hi", "Body", "auth.otp")
	assert.Error(t, err)
	assert.Equal(t, []string{entity.OperationNotificationResend}, f.retry.operations)
}

func TestNotificationService_Resend(t *testing.T) {
	f := newNotificationFixture()
	n := &entity.Notification{
		ID:        uuid.New(),
		Channel:   notify.ChannelSMS,
		Recipient: "+5511999999999",
		Body:      "Reminder",
		Status:    entity.NotificationFailed,
	}
	f.notifications.On("FindByID", mock.Anything, n.ID).Return(n, nil)
	f.notifications.On("UpdateStatus", mock.Anything, n.ID, entity.NotificationSent, (*string)(nil)).Return(nil)

	raw, _ := json.Marshal(resendTask{NotificationID: n.ID})
	require.NoError(t, f.svc.resend(context.Background(), raw))
	require.Len(t, f.sms.sent, 1)
	assert.Empty(t, f.mailer.sent)
	f.notifications.AssertExpectations(t)
}
