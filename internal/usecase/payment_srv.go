package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/payment"
	"cleaning-booking/pkg/pix"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	qrCodeSize  = 256
	currencyBRL = "BRL"
)

type PaymentService interface {
	CreatePIX(ctx context.Context, userID uuid.UUID, req *request.CreatePaymentRequest) (*response.PaymentResponse, error)
	CreateStripe(ctx context.Context, userID uuid.UUID, req *request.CreatePaymentRequest) (*response.PaymentResponse, error)
	GetForBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.PaymentResponse, error)

	// background job
	ExpireStale(ctx context.Context) (int64, error)
}

type paymentService struct {
	payments repository.PaymentRepository
	bookings repository.BookingRepository
	gateway  payment.Gateway
	metrics  *metrics.Metrics
	pix      utils.PIXConfig
	currency string
	log      *zap.Logger
	now      func() time.Time
}

// NewPaymentService accepts a nil gateway; card payments then report as unavailable.
func NewPaymentService(repo *repository.Repository, gateway payment.Gateway, m *metrics.Metrics, config *utils.Config, log *zap.Logger) PaymentService {
	currency := config.Stripe.Currency
	if currency == "" {
		currency = "brl"
	}
	return &paymentService{
		payments: repo.Payment,
		bookings: repo.Booking,
		gateway:  gateway,
		metrics:  m,
		pix:      config.PIX,
		currency: strings.ToLower(currency),
		log:      log.With(zap.String("service", "payment")),
		now:      time.Now,
	}
}

func (s *paymentService) CreatePIX(ctx context.Context, userID uuid.UUID, req *request.CreatePaymentRequest) (*response.PaymentResponse, error) {
	if s.pix.Key == "" {
		return nil, newError(ErrUnavailable, "PIX payments are not configured")
	}

	// 1. Booking must be ours and awaiting payment
	booking, err := s.payableBooking(ctx, userID, req.BookingID)
	if err != nil {
		return nil, err
	}

	// 2. Hand back a live charge instead of minting a second one
	existing, err := s.payments.FindPendingByBooking(ctx, booking.ID, entity.PaymentMethodPIX)
	if err != nil {
		return nil, fmt.Errorf("find pending pix payment: %w", err)
	}
	if existing != nil {
		return s.pixResponse(existing)
	}

	// 3. Build the BR Code
	now := s.now()
	txid := utils.GenerateTxID()
	code := pix.Payload{
		Key:          s.pix.Key,
		MerchantName: s.pix.MerchantName,
		MerchantCity: s.pix.MerchantCity,
		TxID:         txid,
		Description:  booking.OrderID,
		Amount:       booking.TotalPrice,
	}.String()

	expiresAt := now.Add(s.pix.ChargeTTL)
	p := &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:     booking.ID,
		Method:        entity.PaymentMethodPIX,
		Amount:        booking.TotalPrice,
		Currency:      currencyBRL,
		Status:        entity.PaymentStatusPending,
		TransactionID: txid,
		BRCode:        &code,
		ExpiresAt:     &expiresAt,
	}

	// 4. Persist
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create pix payment: %w", err)
	}
	s.metrics.PaymentsCreated.WithLabelValues(string(entity.PaymentMethodPIX)).Inc()

	s.log.Info("PIX charge created",
		zap.String("payment_id", p.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("txid", txid),
		zap.String("amount", p.Amount.StringFixed(2)))

	return s.pixResponse(p)
}

func (s *paymentService) CreateStripe(ctx context.Context, userID uuid.UUID, req *request.CreatePaymentRequest) (*response.PaymentResponse, error) {
	if s.gateway == nil {
		return nil, newError(ErrUnavailable, "card payments are not configured")
	}

	booking, err := s.payableBooking(ctx, userID, req.BookingID)
	if err != nil {
		return nil, err
	}

	existing, err := s.payments.FindPendingByBooking(ctx, booking.ID, entity.PaymentMethodStripe)
	if err != nil {
		return nil, fmt.Errorf("find pending stripe payment: %w", err)
	}
	if existing != nil {
		// same idempotency key, so the provider hands back the original intent
		intent, err := s.createIntent(ctx, existing)
		if err != nil {
			return nil, err
		}
		resp := response.PaymentToResponse(existing)
		resp.ClientSecret = intent.ClientSecret
		return &resp, nil
	}

	now := s.now()
	p := &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID: booking.ID,
		Method:    entity.PaymentMethodStripe,
		Amount:    booking.TotalPrice,
		Currency:  strings.ToUpper(s.currency),
		Status:    entity.PaymentStatusPending,
	}

	intent, err := s.createIntent(ctx, p)
	if err != nil {
		return nil, err
	}
	p.TransactionID = intent.ID

	if err := s.payments.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "a payment for this booking is already being created")
		}
		return nil, fmt.Errorf("create stripe payment: %w", err)
	}
	s.metrics.PaymentsCreated.WithLabelValues(string(entity.PaymentMethodStripe)).Inc()

	s.log.Info("Stripe payment intent created",
		zap.String("payment_id", p.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("intent_id", intent.ID))

	resp := response.PaymentToResponse(p)
	resp.ClientSecret = intent.ClientSecret
	return &resp, nil
}

func (s *paymentService) GetForBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.PaymentResponse, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, newError(ErrNotFound, "booking not found")
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, newError(ErrForbidden, "you do not have access to this booking")
	}

	p, err := s.payments.FindLatestByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking payment: %w", err)
	}
	if p == nil {
		return nil, newError(ErrNotFound, "no payment for this booking")
	}

	if p.Method == entity.PaymentMethodPIX && p.Status == entity.PaymentStatusPending {
		return s.pixResponse(p)
	}
	resp := response.PaymentToResponse(p)
	return &resp, nil
}

func (s *paymentService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.payments.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("expire payments: %w", err)
	}
	if n > 0 {
		s.log.Info("Expired stale payments", zap.Int64("count", n))
	}
	return n, nil
}

// ==================== HELPER METHODS ====================

func (s *paymentService) payableBooking(ctx context.Context, userID uuid.UUID, rawID string) (*entity.Booking, error) {
	bookingID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fieldError("booking_id", "Must be a valid UUID")
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, newError(ErrNotFound, "booking not found")
	}
	if booking.UserID != userID {
		return nil, newError(ErrForbidden, "only the customer can pay for this booking")
	}
	if booking.Status != entity.BookingStatusPending {
		return nil, newError(ErrInvalidState, "a %s booking cannot be paid", booking.Status)
	}
	return booking, nil
}

func (s *paymentService) createIntent(ctx context.Context, p *entity.Payment) (*payment.Intent, error) {
	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		Amount:         p.Amount,
		Currency:       s.currency,
		BookingID:      p.BookingID.String(),
		PaymentID:      p.ID.String(),
		IdempotencyKey: p.ID.String(),
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, newError(ErrUnavailable, "card payments are not configured")
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return intent, nil
}

func (s *paymentService) pixResponse(p *entity.Payment) (*response.PaymentResponse, error) {
	resp := response.PaymentToResponse(p)
	if p.BRCode != nil {
		png, err := pix.QRCode(*p.BRCode, qrCodeSize)
		if err != nil {
			return nil, fmt.Errorf("render pix qr code: %w", err)
		}
		resp.QRCodePNG = png
	}
	return &resp, nil
}
