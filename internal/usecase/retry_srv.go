package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultClaimLease = 5 * time.Minute
	// outcomeTimeout bounds the write that records an attempt, which runs
	// even after the job ctx is cancelled.
	outcomeTimeout = 10 * time.Second
)

// RetryHandler re-runs one queued operation from its stored payload.
type RetryHandler func(ctx context.Context, payload json.RawMessage) error

type RetryService interface {
	Register(operation string, handler RetryHandler)
	Enqueue(ctx context.Context, operation, reference string, payload any, cause error) error
	ProcessDue(ctx context.Context) (int, error)
	List(ctx context.Context, req request.RetryListRequest) (*response.PaginatedResponse[response.RetryResponse], error)
	Requeue(ctx context.Context, id uuid.UUID) (*response.RetryResponse, error)
}

type retryService struct {
	retries repository.RetryRepository
	metrics *metrics.Metrics
	config  utils.RetryConfig
	log     *zap.Logger
	now     func() time.Time
	jitter  func(n int64) int64

	mu       sync.RWMutex
	handlers map[string]RetryHandler
}

func NewRetryService(repo *repository.Repository, m *metrics.Metrics, config *utils.Config, log *zap.Logger) RetryService {
	return &retryService{
		retries:  repo.Retry,
		metrics:  m,
		config:   config.Retry,
		log:      log.With(zap.String("service", "retry")),
		now:      time.Now,
		jitter:   rand.Int64N,
		handlers: make(map[string]RetryHandler),
	}
}

// RetryDelay is min(initial*2^attempt, max) plus up to 10% random jitter.
func RetryDelay(attempt int, initial, maxDelay time.Duration, jitter func(n int64) int64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := initial
	for i := 0; i < attempt && delay < maxDelay; i++ {
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	if spread := int64(delay / 10); spread > 0 && jitter != nil {
		delay += time.Duration(jitter(spread))
	}
	return delay
}

func (s *retryService) Register(operation string, handler RetryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[operation] = handler
}

func (s *retryService) Enqueue(ctx context.Context, operation, reference string, payload any, cause error) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s retry payload: %w", operation, err)
	}

	now := s.now()
	rt := &entity.WebhookRetry{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OperationType: operation,
		ReferenceID:   reference,
		Payload:       raw,
		MaxRetries:    s.config.MaxRetries,
		NextRetryAt:   now.Add(s.delay(0)),
		Status:        entity.RetryStatusPending,
	}
	if cause != nil {
		msg := cause.Error()
		rt.LastError = &msg
	}

	if err := s.retries.Create(ctx, rt); err != nil {
		return fmt.Errorf("enqueue %s: %w", operation, err)
	}

	s.log.Info("Operation queued for retry",
		zap.String("retry_id", rt.ID.String()),
		zap.String("operation", operation),
		zap.String("reference", reference),
		zap.Time("next_retry_at", rt.NextRetryAt))
	return nil
}

// ProcessDue claims due rows and runs each through its handler.
func (s *retryService) ProcessDue(ctx context.Context) (int, error) {
	batch := s.config.BatchSize
	if batch <= 0 {
		batch = 20
	}

	lease := s.config.ClaimLease
	if lease <= 0 {
		lease = defaultClaimLease
	}

	now := s.now()
	due, err := s.retries.ClaimDue(ctx, now, now.Add(-lease), batch)
	if err != nil {
		return 0, fmt.Errorf("claim due retries: %w", err)
	}

	for i, rt := range due {
		if ctx.Err() != nil {
			s.release(ctx, due[i:])
			return i, ctx.Err()
		}
		s.attempt(ctx, rt)
	}
	return len(due), nil
}

// release hands claimed rows back to the queue untouched.
func (s *retryService) release(ctx context.Context, rows []*entity.WebhookRetry) {
	for _, rt := range rows {
		update := entity.RetryUpdate{
			ID:          rt.ID,
			RetryCount:  rt.RetryCount,
			NextRetryAt: rt.NextRetryAt,
			Status:      entity.RetryStatusPending,
			LastError:   rt.LastError,
		}
		if err := s.record(ctx, update); err != nil {
			s.log.Error("Failed to release claimed retry", zap.Error(err), zap.String("retry_id", rt.ID.String()))
		}
	}
	s.log.Warn("Retry batch interrupted, rows released", zap.Int("released", len(rows)))
}

// record writes an outcome on a ctx detached from the caller's cancellation.
func (s *retryService) record(ctx context.Context, update entity.RetryUpdate) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeTimeout)
	defer cancel()
	return s.retries.Update(ctx, update)
}

func (s *retryService) attempt(ctx context.Context, rt *entity.WebhookRetry) {
	log := s.log.With(
		zap.String("retry_id", rt.ID.String()),
		zap.String("operation", rt.OperationType),
		zap.Int("retry_count", rt.RetryCount))

	s.mu.RLock()
	handler, ok := s.handlers[rt.OperationType]
	s.mu.RUnlock()

	update := entity.RetryUpdate{ID: rt.ID, RetryCount: rt.RetryCount, NextRetryAt: rt.NextRetryAt}
	result := ""

	switch {
	case !ok:
		msg := "no handler registered for " + rt.OperationType
		update.Status = entity.RetryStatusFailed
		update.LastError = &msg
		result = "unknown"
		log.Error("Dropping retry with unknown operation")
	default:
		err := handler(ctx, rt.Payload)
		if err == nil {
			update.Status = entity.RetryStatusCompleted
			result = "completed"
			log.Info("Retry succeeded")
			break
		}

		msg := err.Error()
		update.LastError = &msg
		update.RetryCount = rt.RetryCount + 1
		if update.RetryCount >= rt.MaxRetries {
			update.Status = entity.RetryStatusFailed
			result = "failed"
			log.Error("Retry exhausted", zap.Error(err))
		} else {
			update.Status = entity.RetryStatusPending
			update.NextRetryAt = s.now().Add(s.delay(update.RetryCount))
			result = "rescheduled"
			log.Warn("Retry failed, rescheduled", zap.Error(err), zap.Time("next_retry_at", update.NextRetryAt))
		}
	}

	s.metrics.RetryJobs.WithLabelValues(rt.OperationType, result).Inc()

	if err := s.record(ctx, update); err != nil {
		log.Error("Failed to record retry outcome", zap.Error(err))
	}
}

func (s *retryService) List(ctx context.Context, req request.RetryListRequest) (*response.PaginatedResponse[response.RetryResponse], error) {
	var status *entity.RetryStatus
	if req.Status != nil {
		st := entity.RetryStatus(*req.Status)
		status = &st
	}

	retries, err := s.retries.FindAll(ctx, status, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list retries: %w", err)
	}
	total, err := s.retries.CountAll(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("count retries: %w", err)
	}

	data := make([]response.RetryResponse, 0, len(retries))
	for _, rt := range retries {
		data = append(data, response.RetryToResponse(rt))
	}
	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

// Requeue puts a failed row back in the queue, due immediately.
func (s *retryService) Requeue(ctx context.Context, id uuid.UUID) (*response.RetryResponse, error) {
	rt, err := s.retries.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find retry: %w", err)
	}
	if rt == nil {
		return nil, newError(ErrNotFound, "retry not found")
	}
	if rt.Status != entity.RetryStatusFailed {
		return nil, newError(ErrInvalidState, "only failed retries can be requeued")
	}

	ok, err := s.retries.Requeue(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("requeue retry: %w", err)
	}
	if !ok {
		return nil, newError(ErrConflict, "retry changed state, reload and try again")
	}

	rt, err = s.retries.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find retry: %w", err)
	}
	if rt == nil {
		return nil, newError(ErrNotFound, "retry not found")
	}

	s.log.Info("Retry requeued", zap.String("retry_id", id.String()), zap.String("operation", rt.OperationType))

	resp := response.RetryToResponse(rt)
	return &resp, nil
}

func (s *retryService) delay(attempt int) time.Duration {
	return RetryDelay(attempt, s.config.InitialDelay, s.config.MaxDelay, s.jitter)
}
