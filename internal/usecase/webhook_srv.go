package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/events"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/payment"
	"cleaning-booking/pkg/pix"
	"cleaning-booking/pkg/telemetry"
	"cleaning-booking/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Webhook outcomes, reported back to the provider.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "already_processed"
	WebhookQueued    = "queued"
	WebhookFailed    = "failed"
	WebhookIgnored   = "ignored"
)

var (
	errUnknownTransaction = errors.New("unknown transaction")
	errAmountMismatch     = errors.New("amount mismatch")
)

type WebhookService interface {
	HandlePIX(ctx context.Context, body []byte, signature, timestamp string) (string, error)
	HandleStripe(ctx context.Context, body []byte, signatureHeader string) (string, error)
}

// stripeTask is the retry payload of a Stripe event.
type stripeTask struct {
	EventID        string `json:"event_id"`
	Type           string `json:"type"`
	IntentID       string `json:"intent_id"`
	Amount         string `json:"amount"`
	FailureMessage string `json:"failure_message,omitempty"`
}

type webhookService struct {
	ledger    repository.WebhookEventRepository
	payments  repository.PaymentRepository
	bookings  repository.BookingRepository
	booking   BookingService
	retry     RetryService
	gateway   payment.Gateway
	publisher events.Publisher
	metrics   *metrics.Metrics
	pixSecret []byte
	autoAsgn  bool
	log       *zap.Logger
	now       func() time.Time
}

func NewWebhookService(
	repo *repository.Repository,
	booking BookingService,
	retry RetryService,
	gateway payment.Gateway,
	publisher events.Publisher,
	m *metrics.Metrics,
	config *utils.Config,
	log *zap.Logger,
) WebhookService {
	s := &webhookService{
		ledger:    repo.WebhookEvent,
		payments:  repo.Payment,
		bookings:  repo.Booking,
		booking:   booking,
		retry:     retry,
		gateway:   gateway,
		publisher: publisher,
		metrics:   m,
		pixSecret: []byte(config.PIX.WebhookSecret),
		autoAsgn:  config.Booking.AutoAssignOnConfirm,
		log:       log.With(zap.String("service", "webhook")),
		now:       time.Now,
	}

	retry.Register(entity.OperationWebhookPIX, s.retryPIX)
	retry.Register(entity.OperationWebhookStripe, s.retryStripe)
	return s
}

// HandlePIX verifies and applies a PIX notification. Each entry is deduplicated by its end-to-end id.
func (s *webhookService) HandlePIX(ctx context.Context, body []byte, signature, timestamp string) (string, error) {
	if len(s.pixSecret) == 0 {
		return "", newError(ErrUnavailable, "PIX webhooks are not configured")
	}

	// 1. Signature and replay window
	if err := pix.Verify(s.pixSecret, signature, timestamp, body, s.now()); err != nil {
		s.metrics.WebhooksReceived.WithLabelValues(entity.ProviderPIX, "rejected").Inc()
		s.log.Warn("Rejected PIX webhook", zap.Error(err))
		return "", newError(ErrUnauthorized, "invalid webhook signature")
	}

	var req request.PIXWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", fieldError("body", "Invalid PIX notification payload")
	}
	if len(req.Pix) == 0 {
		return "", fieldError("pix", "At least one entry is required")
	}

	// 2. Reject the whole batch before anything is recorded
	for _, entry := range req.Pix {
		if entry.EndToEndID == "" || entry.TxID == "" {
			return "", fieldError("pix", "endToEndId and txid are required")
		}
	}

	// 3. Apply each entry once
	outcome := WebhookDuplicate
	for _, entry := range req.Pix {
		raw, _ := json.Marshal(entry)
		fresh, err := s.ledger.Record(ctx, &entity.WebhookEvent{
			Provider:   entity.ProviderPIX,
			EventID:    entry.EndToEndID,
			EventType:  "pix.received",
			Payload:    raw,
			Status:     entity.WebhookEventReceived,
			ReceivedAt: s.now(),
		})
		if err != nil {
			return "", fmt.Errorf("record pix event: %w", err)
		}

		result := WebhookDuplicate
		if fresh {
			result, err = s.finish(ctx, entity.ProviderPIX, entry.EndToEndID, entity.OperationWebhookPIX, entry, s.applyPIX(ctx, entry))
			if err != nil {
				return "", err
			}
		}
		s.metrics.WebhooksReceived.WithLabelValues(entity.ProviderPIX, result).Inc()
		outcome = worse(outcome, result)
	}
	return outcome, nil
}

// HandleStripe verifies the Stripe-Signature header and applies intent events.
func (s *webhookService) HandleStripe(ctx context.Context, body []byte, signatureHeader string) (string, error) {
	if s.gateway == nil {
		return "", newError(ErrUnavailable, "card payments are not configured")
	}

	event, err := s.gateway.ParseWebhook(body, signatureHeader)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotConfigured):
			return "", newError(ErrUnavailable, "card payments are not configured")
		case errors.Is(err, payment.ErrInvalidSignature):
			s.metrics.WebhooksReceived.WithLabelValues(entity.ProviderStripe, "rejected").Inc()
			s.log.Warn("Rejected Stripe webhook", zap.Error(err))
			return "", newError(ErrUnauthorized, "invalid webhook signature")
		}
		return "", fieldError("body", "Invalid Stripe event payload")
	}

	fresh, err := s.ledger.Record(ctx, &entity.WebhookEvent{
		Provider:   entity.ProviderStripe,
		EventID:    event.ID,
		EventType:  event.Type,
		Payload:    event.Raw,
		Status:     entity.WebhookEventReceived,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("record stripe event: %w", err)
	}
	if !fresh {
		s.metrics.WebhooksReceived.WithLabelValues(entity.ProviderStripe, WebhookDuplicate).Inc()
		return WebhookDuplicate, nil
	}

	task := stripeTask{
		EventID:        event.ID,
		Type:           event.Type,
		IntentID:       event.IntentID,
		Amount:         event.Amount.StringFixed(2),
		FailureMessage: event.FailureMessage,
	}

	var result string
	if event.Type != payment.EventIntentSucceeded && event.Type != payment.EventIntentFailed {
		if err := s.ledger.MarkStatus(ctx, entity.ProviderStripe, event.ID, entity.WebhookEventProcessed); err != nil {
			s.log.Error("Failed to mark webhook event", zap.Error(err))
		}
		result = WebhookIgnored
	} else {
		result, err = s.finish(ctx, entity.ProviderStripe, event.ID, entity.OperationWebhookStripe, task, s.applyStripe(ctx, task))
		if err != nil {
			return "", err
		}
	}

	s.metrics.WebhooksReceived.WithLabelValues(entity.ProviderStripe, result).Inc()
	return result, nil
}

// ==================== PROCESSING ====================

func (s *webhookService) applyPIX(ctx context.Context, entry request.PIXWebhookEntry) error {
	amount, err := decimal.NewFromString(entry.Amount)
	if err != nil {
		return fmt.Errorf("%w: unparseable amount %q", errAmountMismatch, entry.Amount)
	}
	paidAt := s.now()
	if entry.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, entry.PaidAt); err == nil {
			paidAt = t
		}
	}
	ref := entry.EndToEndID
	return s.settle(ctx, entry.TxID, amount, paidAt, &ref)
}

func (s *webhookService) applyStripe(ctx context.Context, task stripeTask) error {
	if task.Type == payment.EventIntentFailed {
		p, err := s.payments.FindByTransactionID(ctx, task.IntentID)
		if err != nil {
			return fmt.Errorf("find payment: %w", err)
		}
		if p == nil {
			return fmt.Errorf("%w %s", errUnknownTransaction, task.IntentID)
		}
		if _, err := s.payments.MarkFailed(ctx, p.ID, &task.EventID); err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		s.log.Info("Card payment failed",
			zap.String("payment_id", p.ID.String()),
			zap.String("reason", task.FailureMessage))
		return nil
	}

	amount, err := decimal.NewFromString(task.Amount)
	if err != nil {
		return fmt.Errorf("%w: unparseable amount %q", errAmountMismatch, task.Amount)
	}
	return s.settle(ctx, task.IntentID, amount, s.now(), &task.EventID)
}

// settle completes the payment, confirms its booking and fans out the follow-ups.
func (s *webhookService) settle(ctx context.Context, transactionID string, amount decimal.Decimal, paidAt time.Time, providerRef *string) error {
	// 1. Match the charge
	p, err := s.payments.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("find payment: %w", err)
	}
	if p == nil {
		return fmt.Errorf("%w %s", errUnknownTransaction, transactionID)
	}
	if !p.Amount.Equal(amount) {
		return fmt.Errorf("%w: payment %s expects %s, got %s",
			errAmountMismatch, p.ID, p.Amount.StringFixed(2), amount.StringFixed(2))
	}
	if p.Status == entity.PaymentStatusCompleted {
		return nil
	}

	booking, err := s.bookings.FindByID(ctx, p.BookingID)
	if err != nil {
		return fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("booking %s of payment %s is gone", p.BookingID, p.ID)
	}

	// 2. Payment and booking move together
	settlement, err := s.payments.CompleteAndConfirmBooking(ctx, p.ID, p.BookingID, paidAt, providerRef)
	if err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}
	if !settlement.PaymentCompleted {
		return nil
	}

	s.publish(ctx, events.PaymentCompleted, events.PaymentPayload{
		PaymentID: p.ID,
		BookingID: p.BookingID,
		UserID:    booking.UserID,
		Method:    string(p.Method),
		Amount:    p.Amount.StringFixed(2),
	})

	if settlement.RefundDue {
		s.metrics.PaymentsOrphaned.WithLabelValues(string(p.Method)).Inc()
		s.log.Error("Payment received for a cancelled booking, refund due",
			zap.String("payment_id", p.ID.String()),
			zap.String("booking_id", p.BookingID.String()),
			zap.String("amount", p.Amount.StringFixed(2)))
		telemetry.CaptureError(fmt.Errorf("payment %s settled after booking %s was cancelled", p.ID, p.BookingID))
		return nil
	}
	if !settlement.BookingConfirmed {
		s.log.Warn("Payment settled for a booking that is no longer pending",
			zap.String("payment_id", p.ID.String()),
			zap.String("booking_id", p.BookingID.String()),
			zap.String("booking_status", string(booking.Status)))
		return nil
	}

	// 3. Confirmation follow-ups
	s.metrics.BookingTransition.WithLabelValues(string(entity.BookingStatusConfirmed)).Inc()
	s.publish(ctx, events.BookingConfirmed, events.BookingPayload{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		StaffID:   booking.StaffID,
	})
	if s.autoAsgn && booking.StaffID == nil {
		if _, err := s.booking.AutoAssign(ctx, booking.ID); err != nil {
			s.log.Warn("Auto-assign after payment failed", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		}
	}

	s.log.Info("Payment settled",
		zap.String("payment_id", p.ID.String()),
		zap.String("booking_id", p.BookingID.String()),
		zap.String("method", string(p.Method)))
	return nil
}

// finish records the outcome of a first delivery and queues transient failures.
// When the failure cannot be queued either, the ledger entry is dropped and an
// unavailable error returned so the provider redelivers.
func (s *webhookService) finish(ctx context.Context, provider, eventID, operation string, payload any, err error) (string, error) {
	if err == nil {
		s.mark(ctx, provider, eventID, entity.WebhookEventProcessed)
		return WebhookProcessed, nil
	}

	if errors.Is(err, errAmountMismatch) {
		s.mark(ctx, provider, eventID, entity.WebhookEventFailed)
		s.log.Error("Webhook rejected", zap.Error(err), zap.String("provider", provider), zap.String("event_id", eventID))
		telemetry.CaptureError(err)
		return WebhookFailed, nil
	}

	if qerr := s.retry.Enqueue(ctx, operation, eventID, payload, err); qerr != nil {
		s.log.Error("Failed to queue webhook retry", zap.Error(qerr), zap.NamedError("cause", err),
			zap.String("provider", provider), zap.String("event_id", eventID))
		telemetry.CaptureError(qerr)
		if ferr := s.ledger.Forget(ctx, provider, eventID); ferr != nil {
			s.log.Error("Failed to forget webhook event, redelivery will be seen as a duplicate",
				zap.Error(ferr), zap.String("event_id", eventID))
			telemetry.CaptureError(ferr)
		}
		s.metrics.WebhooksReceived.WithLabelValues(provider, "unavailable").Inc()
		return "", newError(ErrUnavailable, "webhook could not be processed, retry later")
	}
	s.log.Warn("Webhook processing deferred", zap.Error(err), zap.String("provider", provider), zap.String("event_id", eventID))
	return WebhookQueued, nil
}

func (s *webhookService) retryPIX(ctx context.Context, raw json.RawMessage) error {
	var entry request.PIXWebhookEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return fmt.Errorf("decode pix retry: %w", err)
	}
	return s.retried(ctx, entity.ProviderPIX, entry.EndToEndID, s.applyPIX(ctx, entry))
}

func (s *webhookService) retryStripe(ctx context.Context, raw json.RawMessage) error {
	var task stripeTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return fmt.Errorf("decode stripe retry: %w", err)
	}
	return s.retried(ctx, entity.ProviderStripe, task.EventID, s.applyStripe(ctx, task))
}

func (s *webhookService) retried(ctx context.Context, provider, eventID string, err error) error {
	switch {
	case err == nil:
		s.mark(ctx, provider, eventID, entity.WebhookEventProcessed)
		return nil
	case errors.Is(err, errAmountMismatch):
		// not retryable, give up quietly
		s.mark(ctx, provider, eventID, entity.WebhookEventFailed)
		telemetry.CaptureError(err)
		s.log.Error("Webhook rejected on retry", zap.Error(err), zap.String("event_id", eventID))
		return nil
	}
	return err
}

func (s *webhookService) mark(ctx context.Context, provider, eventID, status string) {
	if err := s.ledger.MarkStatus(ctx, provider, eventID, status); err != nil {
		s.log.Error("Failed to mark webhook event", zap.Error(err), zap.String("event_id", eventID))
	}
}

func (s *webhookService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.log.Warn("Failed to publish event", zap.Error(err), zap.String("event", eventType))
	}
}

var outcomeRank = map[string]int{
	WebhookDuplicate: 0,
	WebhookIgnored:   1,
	WebhookProcessed: 2,
	WebhookFailed:    3,
	WebhookQueued:    4,
}

// worse keeps the outcome that should drive the response status.
func worse(a, b string) string {
	if outcomeRank[b] > outcomeRank[a] {
		return b
	}
	return a
}
