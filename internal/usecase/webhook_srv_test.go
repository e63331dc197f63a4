package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/events"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/payment"
	"cleaning-booking/pkg/pix"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPIXSecret = "whsec-test"

// queuedRetry stands in for the retry queue and remembers what was enqueued.
type queuedRetry struct {
	RetryService
	operations []string
	err        error
}

func (q *queuedRetry) Register(string, RetryHandler) {}

func (q *queuedRetry) Enqueue(_ context.Context, operation, _ string, _ any, _ error) error {
	q.operations = append(q.operations, operation)
	return q.err
}

type webhookFixture struct {
	svc       *webhookService
	ledger    *MockWebhookEventRepository
	payments  *MockPaymentRepository
	bookings  *MockBookingRepository
	gateway   *MockGateway
	retry     *queuedRetry
	publisher *recordingPublisher
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		ledger:    new(MockWebhookEventRepository),
		payments:  new(MockPaymentRepository),
		bookings:  new(MockBookingRepository),
		gateway:   new(MockGateway),
		retry:     &queuedRetry{},
		publisher: &recordingPublisher{},
	}
	f.svc = &webhookService{
		ledger:    f.ledger,
		payments:  f.payments,
		bookings:  f.bookings,
		retry:     f.retry,
		gateway:   f.gateway,
		publisher: f.publisher,
		metrics:   metrics.New(),
		pixSecret: []byte(testPIXSecret),
		log:       zap.NewNop(),
		now:       func() time.Time { return fixedNow },
	}
	return f
}

func signedPIX(t *testing.T, entries ...map[string]string) ([]byte, string, string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"pix": entries})
	require.NoError(t, err)
	ts := strconv.FormatInt(fixedNow.Unix(), 10)
	return body, pix.Sign([]byte(testPIXSecret), ts, body), ts
}

func pixEntry(e2e, txid, amount string) map[string]string {
	return map[string]string{"endToEndId": e2e, "txid": txid, "valor": amount, "horario": "2025-06-10T11:59:00Z"}
}

func TestWebhookService_HandlePIX_BadSignature(t *testing.T) {
	f := newWebhookFixture()
	body, _, ts := signedPIX(t, pixEntry("E1", "TX1", "150.00"))

	_, err := f.svc.HandlePIX(context.Background(), body, "deadbeef", ts)
	assert.ErrorIs(t, err, ErrUnauthorized)
	f.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestWebhookService_HandlePIX_StaleTimestamp(t *testing.T) {
	f := newWebhookFixture()
	body, _ := json.Marshal(map[string]any{"pix": []map[string]string{pixEntry("E1", "TX1", "150.00")}})
	old := strconv.FormatInt(fixedNow.Add(-time.Hour).Unix(), 10)

	_, err := f.svc.HandlePIX(context.Background(), body, pix.Sign([]byte(testPIXSecret), old, body), old)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestWebhookService_HandlePIX_NotConfigured(t *testing.T) {
	f := newWebhookFixture()
	f.svc.pixSecret = nil

	_, err := f.svc.HandlePIX(context.Background(), []byte(`{}`), "x", "1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWebhookService_HandlePIX_Duplicate(t *testing.T) {
	f := newWebhookFixture()
	body, sig, ts := signedPIX(t, pixEntry("E1", "TX1", "150.00"))

	f.ledger.On("Record", mock.Anything, mock.Anything).Return(false, nil)

	outcome, err := f.svc.HandlePIX(context.Background(), body, sig, ts)
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, outcome)
	f.payments.AssertNotCalled(t, "FindByTransactionID", mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.Types())
}

func TestWebhookService_HandlePIX_Settles(t *testing.T) {
	f := newWebhookFixture()
	body, sig, ts := signedPIX(t, pixEntry("E1", "TX1", "150.00"))

	bookingID, userID := uuid.New(), uuid.New()
	p := &entity.Payment{
		BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New()},
		BookingID:     bookingID,
		Method:        entity.PaymentMethodPIX,
		Amount:        decimal.RequireFromString("150"),
		Status:        entity.PaymentStatusPending,
		TransactionID: "TX1",
	}
	staff := uuid.New()
	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{ID: bookingID},
		UserID:       userID,
		StaffID:      &staff,
		Status:       entity.BookingStatusPending,
	}
	paidAt := time.Date(2025, 6, 10, 11, 59, 0, 0, time.UTC)

	f.ledger.On("Record", mock.Anything, mock.MatchedBy(func(e *entity.WebhookEvent) bool {
		return e.Provider == entity.ProviderPIX && e.EventID == "E1"
	})).Return(true, nil)
	f.payments.On("FindByTransactionID", mock.Anything, "TX1").Return(p, nil)
	f.bookings.On("FindByID", mock.Anything, bookingID).Return(booking, nil)
	f.payments.On("CompleteAndConfirmBooking", mock.Anything, p.ID, bookingID, paidAt, mock.Anything).
		Return(&repository.Settlement{PaymentCompleted: true, BookingConfirmed: true}, nil)
	f.ledger.On("MarkStatus", mock.Anything, entity.ProviderPIX, "E1", entity.WebhookEventProcessed).Return(nil)

	outcome, err := f.svc.HandlePIX(context.Background(), body, sig, ts)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.Equal(t, []string{events.PaymentCompleted, events.BookingConfirmed}, f.publisher.Types())
	assert.Empty(t, f.retry.operations)
	f.payments.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestWebhookService_HandlePIX_UnknownTransactionIsQueued(t *testing.T) {
	f := newWebhookFixture()
	body, sig, ts := signedPIX(t, pixEntry("E2", "TX-LATE", "80.00"))

	f.ledger.On("Record", mock.Anything, mock.Anything).Return(true, nil)
	f.payments.On("FindByTransactionID", mock.Anything, "TX-LATE").Return(nil, nil)

	outcome, err := f.svc.HandlePIX(context.Background(), body, sig, ts)
	require.NoError(t, err)
	assert.Equal(t, WebhookQueued, outcome)
	assert.Equal(t, []string{entity.OperationWebhookPIX}, f.retry.operations)
	f.ledger.AssertNotCalled(t, "MarkStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_HandlePIX_AmountMismatch(t *testing.T) {
	f := newWebhookFixture()
	body, sig, ts := signedPIX(t, pixEntry("E3", "TX3", "10.00"))

	f.ledger.On("Record", mock.Anything, mock.Anything).Return(true, nil)
	f.payments.On("FindByTransactionID", mock.Anything, "TX3").Return(&entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
		Amount:       decimal.RequireFromString("150.00"),
		Status:       entity.PaymentStatusPending,
	}, nil)
	f.ledger.On("MarkStatus", mock.Anything, entity.ProviderPIX, "E3", entity.WebhookEventFailed).Return(nil)

	outcome, err := f.svc.HandlePIX(context.Background(), body, sig, ts)
	require.NoError(t, err)
	assert.Equal(t, WebhookFailed, outcome)
	assert.Empty(t, f.retry.operations)
	f.payments.AssertNotCalled(t, "CompleteAndConfirmBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_HandlePIX_MissingIDs(t *testing.T) {
	f := newWebhookFixture()
	body, sig, ts := signedPIX(t, pixEntry("", "TX1", "1.00"))

	_, err := f.svc.HandlePIX(context.Background(), body, sig, ts)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestWebhookService_HandlePIX_MalformedEntryRejectsWholeBatch(t *testing.T) {
	f := newWebhookFixture()
	body, sig, ts := signedPIX(t,
		pixEntry("E1", "TX1", "150.00"),
		pixEntry("E2", "TX2", "80.00"),
		pixEntry("E3", "", "10.00"),
	)

	_, err := f.svc.HandlePIX(context.Background(), body, sig, ts)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	f.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	f.payments.AssertNotCalled(t, "FindByTransactionID", mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.Types())
}

func TestWebhookService_HandlePIX_QueueDownAsksForRedelivery(t *testing.T) {
	f := newWebhookFixture()
	f.retry.err = errors.New("retry table unavailable")
	body, sig, ts := signedPIX(t, pixEntry("E4", "TX4", "80.00"))

	f.ledger.On("Record", mock.Anything, mock.Anything).Return(true, nil)
	f.payments.On("FindByTransactionID", mock.Anything, "TX4").Return(nil, errors.New("conn reset"))
	f.ledger.On("Forget", mock.Anything, entity.ProviderPIX, "E4").Return(nil)

	outcome, err := f.svc.HandlePIX(context.Background(), body, sig, ts)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, outcome)
	assert.Equal(t, []string{entity.OperationWebhookPIX}, f.retry.operations)
	f.ledger.AssertExpectations(t)
	f.ledger.AssertNotCalled(t, "MarkStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.WebhooksReceived.WithLabelValues(entity.ProviderPIX, "unavailable")))
}

func TestWebhookService_HandlePIX_CancelledBookingFlagsRefund(t *testing.T) {
	f := newWebhookFixture()
	body, sig, ts := signedPIX(t, pixEntry("E5", "TX5", "150.00"))

	bookingID := uuid.New()
	p := &entity.Payment{
		BaseNoDelete:  entity.BaseNoDelete{ID: uuid.New()},
		BookingID:     bookingID,
		Method:        entity.PaymentMethodPIX,
		Amount:        decimal.RequireFromString("150"),
		Status:        entity.PaymentStatusExpired,
		TransactionID: "TX5",
	}
	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{ID: bookingID},
		UserID:       uuid.New(),
		Status:       entity.BookingStatusCancelled,
	}

	f.ledger.On("Record", mock.Anything, mock.Anything).Return(true, nil)
	f.payments.On("FindByTransactionID", mock.Anything, "TX5").Return(p, nil)
	f.bookings.On("FindByID", mock.Anything, bookingID).Return(booking, nil)
	f.payments.On("CompleteAndConfirmBooking", mock.Anything, p.ID, bookingID, mock.Anything, mock.Anything).
		Return(&repository.Settlement{PaymentCompleted: true, RefundDue: true}, nil)
	f.ledger.On("MarkStatus", mock.Anything, entity.ProviderPIX, "E5", entity.WebhookEventProcessed).Return(nil)

	outcome, err := f.svc.HandlePIX(context.Background(), body, sig, ts)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.Equal(t, []string{events.PaymentCompleted}, f.publisher.Types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.PaymentsOrphaned.WithLabelValues(string(entity.PaymentMethodPIX))))
}

func TestWebhookService_HandleStripe(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		f := newWebhookFixture()
		f.gateway.On("ParseWebhook", mock.Anything, "t=1,v1=x").Return(nil, payment.ErrInvalidSignature)

		_, err := f.svc.HandleStripe(context.Background(), []byte(`{}`), "t=1,v1=x")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("no gateway", func(t *testing.T) {
		f := newWebhookFixture()
		f.svc.gateway = nil

		_, err := f.svc.HandleStripe(context.Background(), []byte(`{}`), "sig")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("unrelated event is ignored", func(t *testing.T) {
		f := newWebhookFixture()
		f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(&payment.WebhookEvent{ID: "evt_1", Type: "charge.refunded"}, nil)
		f.ledger.On("Record", mock.Anything, mock.Anything).Return(true, nil)
		f.ledger.On("MarkStatus", mock.Anything, entity.ProviderStripe, "evt_1", entity.WebhookEventProcessed).Return(nil)

		outcome, err := f.svc.HandleStripe(context.Background(), []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookIgnored, outcome)
	})

	t.Run("failed intent marks payment failed", func(t *testing.T) {
		f := newWebhookFixture()
		paymentID := uuid.New()
		f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(&payment.WebhookEvent{
			ID: "evt_2", Type: payment.EventIntentFailed, IntentID: "pi_1", FailureMessage: "card_declined",
		}, nil)
		f.ledger.On("Record", mock.Anything, mock.Anything).Return(true, nil)
		f.payments.On("FindByTransactionID", mock.Anything, "pi_1").Return(&entity.Payment{BaseNoDelete: entity.BaseNoDelete{ID: paymentID}}, nil)
		f.payments.On("MarkFailed", mock.Anything, paymentID, mock.Anything).Return(true, nil)
		f.ledger.On("MarkStatus", mock.Anything, entity.ProviderStripe, "evt_2", entity.WebhookEventProcessed).Return(nil)

		outcome, err := f.svc.HandleStripe(context.Background(), []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookProcessed, outcome)
		f.payments.AssertExpectations(t)
	})

	t.Run("queue down asks for redelivery", func(t *testing.T) {
		f := newWebhookFixture()
		f.retry.err = errors.New("retry table unavailable")
		f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(&payment.WebhookEvent{
			ID: "evt_4", Type: payment.EventIntentSucceeded, IntentID: "pi_4", Amount: decimal.NewFromInt(50),
		}, nil)
		f.ledger.On("Record", mock.Anything, mock.Anything).Return(true, nil)
		f.payments.On("FindByTransactionID", mock.Anything, "pi_4").Return(nil, errors.New("conn reset"))
		f.ledger.On("Forget", mock.Anything, entity.ProviderStripe, "evt_4").Return(nil)

		_, err := f.svc.HandleStripe(context.Background(), []byte(`{}`), "sig")
		assert.ErrorIs(t, err, ErrUnavailable)
		f.ledger.AssertExpectations(t)
	})

	t.Run("replayed event", func(t *testing.T) {
		f := newWebhookFixture()
		f.gateway.On("ParseWebhook", mock.Anything, "sig").Return(&payment.WebhookEvent{ID: "evt_3", Type: payment.EventIntentSucceeded}, nil)
		f.ledger.On("Record", mock.Anything, mock.Anything).Return(false, nil)

		outcome, err := f.svc.HandleStripe(context.Background(), []byte(`{}`), "sig")
		require.NoError(t, err)
		assert.Equal(t, WebhookDuplicate, outcome)
	})
}

func TestWebhookService_RetryDropsAmountMismatch(t *testing.T) {
	f := newWebhookFixture()
	f.payments.On("FindByTransactionID", mock.Anything, "TX9").Return(&entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
		Amount:       decimal.RequireFromString("20"),
	}, nil)
	f.ledger.On("MarkStatus", mock.Anything, entity.ProviderPIX, "E9", entity.WebhookEventFailed).Return(nil)

	raw, _ := json.Marshal(pixEntry("E9", "TX9", "25.00"))
	assert.NoError(t, f.svc.retryPIX(context.Background(), raw))

	f.payments.On("FindByTransactionID", mock.Anything, "TX10").Return(nil, errors.New("timeout"))
	raw, _ = json.Marshal(pixEntry("E10", "TX10", "25.00"))
	assert.Error(t, f.svc.retryPIX(context.Background(), raw))
}

func TestWorse(t *testing.T) {
	assert.Equal(t, WebhookQueued, worse(WebhookProcessed, WebhookQueued))
	assert.Equal(t, WebhookFailed, worse(WebhookFailed, WebhookProcessed))
	assert.Equal(t, WebhookProcessed, worse(WebhookDuplicate, WebhookProcessed))
}
