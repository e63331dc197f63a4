package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/internal/events"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"

	expiredPendingReason = "payment not received in time"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role entity.UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == entity.RoleAdmin }

type BookingService interface {
	Create(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	Quote(ctx context.Context, userID uuid.UUID, req *request.QuoteRequest) (*response.QuoteResponse, error)
	ListMine(ctx context.Context, userID uuid.UUID, req request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	ListAssigned(ctx context.Context, staffID uuid.UUID, req request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	ListAll(ctx context.Context, req request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*response.BookingResponse, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID, req *request.CancelBookingRequest) (*response.BookingResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error)
	AssignStaff(ctx context.Context, id, staffID uuid.UUID) (*response.BookingResponse, error)
	AutoAssign(ctx context.Context, id uuid.UUID) (*response.BookingResponse, error)
	StaffCandidates(ctx context.Context, id uuid.UUID) ([]response.StaffCandidateResponse, error)

	// background jobs
	ExpireStalePending(ctx context.Context) (int, error)
	SendReminders(ctx context.Context) (int, error)
}

type bookingService struct {
	bookings  repository.BookingRepository
	services  repository.ServiceRepository
	staff     repository.StaffRepository
	users     repository.UserRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	config    utils.BookingConfig
	loc       *time.Location
	log       *zap.Logger
	now       func() time.Time
}

func NewBookingService(
	repo *repository.Repository,
	publisher events.Publisher,
	m *metrics.Metrics,
	config *utils.Config,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		bookings:  repo.Booking,
		services:  repo.Service,
		staff:     repo.Staff,
		users:     repo.User,
		publisher: publisher,
		metrics:   m,
		config:    config.Booking,
		loc:       config.Booking.Location(),
		log:       log.With(zap.String("service", "booking")),
		now:       time.Now,
	}
}

// slot is a validated booking interval plus the bounds of its local day.
type slot struct {
	start, end       time.Time
	dayStart, dayEnd time.Time
}

func (s *bookingService) Create(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	// 1. Service must exist and be bookable
	svc, err := s.activeService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	// 2. Schedule rules
	sl, err := s.resolveSlot(req.Date, req.Time, svc.DurationMinutes)
	if err != nil {
		return nil, err
	}

	// 3. The customer cannot be in two places at once
	conflict, err := s.bookings.HasUserConflict(ctx, userID, sl.start, sl.end, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check customer conflicts: %w", err)
	}
	if conflict {
		return nil, newError(ErrConflict, "you already have a booking that overlaps this time")
	}

	// 4. Preferred staff must be free
	var staffID *uuid.UUID
	if req.PreferredStaffID != nil {
		id, err := uuid.Parse(*req.PreferredStaffID)
		if err != nil {
			return nil, fieldError("preferred_staff_id", "Must be a valid UUID")
		}
		if _, err := s.checkStaffFree(ctx, id, sl, uuid.Nil); err != nil {
			return nil, err
		}
		staffID = &id
	}

	// 5. Price it
	price, err := s.price(ctx, userID, svc, sl)
	if err != nil {
		return nil, err
	}

	// 6. Persist as pending
	now := s.now()
	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderID:    utils.GenerateOrderID(),
		UserID:     userID,
		ServiceID:  svc.ID,
		StaffID:    staffID,
		StartAt:    sl.start,
		EndAt:      sl.end,
		Address:    req.Address,
		Notes:      req.Notes,
		BasePrice:  svc.BasePrice,
		TotalPrice: price.Total,
		Status:     entity.BookingStatusPending,
	}
	if err := s.bookings.Create(ctx, booking, sl.dayStart, sl.dayEnd); err != nil {
		if conflict := slotConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.metrics.BookingsCreated.Inc()
	s.publish(ctx, events.BookingCreated, events.BookingPayload{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		StaffID:   booking.StaffID,
	})

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("user_id", userID.String()),
		zap.String("total_price", booking.TotalPrice.String()))

	resp := response.BookingToResponse(booking)
	resp.ServiceName = svc.Name
	resp.ServiceCategory = svc.Category
	return &resp, nil
}

func (s *bookingService) Quote(ctx context.Context, userID uuid.UUID, req *request.QuoteRequest) (*response.QuoteResponse, error) {
	svc, err := s.activeService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	sl, err := s.resolveSlot(req.Date, req.Time, svc.DurationMinutes)
	if err != nil {
		return nil, err
	}
	price, err := s.price(ctx, userID, svc, sl)
	if err != nil {
		return nil, err
	}

	return &response.QuoteResponse{
		ServiceID:       svc.ID.String(),
		StartAt:         sl.start,
		EndAt:           sl.end,
		BasePrice:       price.BasePrice,
		DemandFactor:    price.DemandFactor,
		Utilisation:     price.Utilisation,
		RushFactor:      price.RushFactor,
		DayFactor:       price.DayFactor,
		LoyaltyDiscount: price.LoyaltyDiscount,
		TotalPrice:      price.Total,
		Clamped:         price.Clamped,
	}, nil
}

func (s *bookingService) ListMine(ctx context.Context, userID uuid.UUID, req request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	return s.list(ctx, entity.BookingFilter{UserID: &userID}, req)
}

func (s *bookingService) ListAssigned(ctx context.Context, staffID uuid.UUID, req request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	return s.list(ctx, entity.BookingFilter{StaffID: &staffID}, req)
}

func (s *bookingService) ListAll(ctx context.Context, req request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	return s.list(ctx, entity.BookingFilter{}, req)
}

func (s *bookingService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*response.BookingResponse, error) {
	detail, err := s.findDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, &detail.Booking) {
		return nil, newError(ErrForbidden, "you do not have access to this booking")
	}

	resp := response.BookingDetailToResponse(detail)
	return &resp, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor Actor, id uuid.UUID, req *request.CancelBookingRequest) (*response.BookingResponse, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, newError(ErrForbidden, "only the customer can cancel this booking")
	}

	if booking.Status != entity.BookingStatusPending && booking.Status != entity.BookingStatusConfirmed {
		return nil, newError(ErrInvalidState, "a %s booking cannot be cancelled", booking.Status)
	}
	if !actor.IsAdmin() && booking.StartAt.Sub(s.now()) < s.config.CancellationCutoff {
		return nil, newError(ErrInvalidState, "bookings can only be cancelled at least %d hours before the start",
			int(s.config.CancellationCutoff.Hours()))
	}

	if err := s.transition(ctx, booking, entity.BookingStatusCancelled, req.Reason); err != nil {
		return nil, err
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", id.String()),
		zap.String("actor_id", actor.ID.String()))

	return s.detailResponse(ctx, id)
}

// UpdateStatus lets staff start and finish their own jobs and admins apply any legal move.
func (s *bookingService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	next := entity.BookingStatus(req.Status)

	switch actor.Role {
	case entity.RoleAdmin:
	case entity.RoleStaff:
		if booking.StaffID == nil || *booking.StaffID != actor.ID {
			return nil, newError(ErrForbidden, "this booking is not assigned to you")
		}
		if next != entity.BookingStatusInProgress && next != entity.BookingStatusCompleted {
			return nil, newError(ErrForbidden, "staff can only start or complete a booking")
		}
	default:
		return nil, newError(ErrForbidden, "not allowed to change booking status")
	}

	if err := s.transition(ctx, booking, next, req.Reason); err != nil {
		return nil, err
	}

	s.log.Info("Booking status updated",
		zap.String("booking_id", id.String()),
		zap.String("status", string(next)),
		zap.String("actor_id", actor.ID.String()))

	return s.detailResponse(ctx, id)
}

func (s *bookingService) AssignStaff(ctx context.Context, id, staffID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !assignable(booking.Status) {
		return nil, newError(ErrInvalidState, "a %s booking cannot be reassigned", booking.Status)
	}

	user, err := s.users.FindByID(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("find staff user: %w", err)
	}
	if user == nil {
		return nil, newError(ErrNotFound, "staff member not found")
	}
	if user.Role != entity.RoleStaff {
		return nil, newError(ErrInvalidState, "user is not a staff member")
	}

	if _, err := s.checkStaffFree(ctx, staffID, s.slotOf(booking), booking.ID); err != nil {
		return nil, err
	}
	if err := s.assign(ctx, booking, staffID); err != nil {
		return nil, err
	}

	return s.detailResponse(ctx, id)
}

func (s *bookingService) AutoAssign(ctx context.Context, id uuid.UUID) (*response.BookingResponse, error) {
	detail, err := s.findDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !assignable(detail.Status) {
		return nil, newError(ErrInvalidState, "a %s booking cannot be reassigned", detail.Status)
	}

	ranked, err := s.rank(ctx, detail)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, newError(ErrConflict, "no staff member is available for this slot")
	}

	best := ranked[0]
	if err := s.assign(ctx, &detail.Booking, best.Candidate.Profile.UserID); err != nil {
		return nil, err
	}

	s.log.Info("Booking auto-assigned",
		zap.String("booking_id", id.String()),
		zap.String("staff_id", best.Candidate.Profile.UserID.String()),
		zap.Float64("score", best.Score))

	return s.detailResponse(ctx, id)
}

func (s *bookingService) StaffCandidates(ctx context.Context, id uuid.UUID) ([]response.StaffCandidateResponse, error) {
	detail, err := s.findDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	ranked, err := s.rank(ctx, detail)
	if err != nil {
		return nil, err
	}

	out := make([]response.StaffCandidateResponse, 0, len(ranked))
	for _, r := range ranked {
		p := r.Candidate.Profile
		out = append(out, response.StaffCandidateResponse{
			StaffID:       p.UserID.String(),
			Username:      p.Username,
			Score:         r.Score,
			Specialized:   r.Specialized,
			Rating:        p.Rating,
			DayLoad:       r.Candidate.DayLoad,
			MaxDaily:      p.MaxDailyBookings,
			CompletedJobs: p.CompletedJobs,
		})
	}
	return out, nil
}

// ExpireStalePending cancels pending bookings that were never paid.
func (s *bookingService) ExpireStalePending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.PendingExpiry)
	cancelled, err := s.bookings.CancelStalePending(ctx, cutoff, expiredPendingReason)
	if err != nil {
		return 0, fmt.Errorf("cancel stale bookings: %w", err)
	}

	for _, b := range cancelled {
		s.metrics.BookingTransition.WithLabelValues(string(entity.BookingStatusCancelled)).Inc()
		s.publish(ctx, events.BookingCancelled, events.BookingPayload{
			BookingID: b.ID,
			UserID:    b.UserID,
			StaffID:   b.StaffID,
			Reason:    expiredPendingReason,
		})
	}
	return len(cancelled), nil
}

// SendReminders publishes one reminder per confirmed booking starting within the lead window.
func (s *bookingService) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.bookings.FindDueReminders(ctx, now, now.Add(s.config.ReminderLead))
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	sent := 0
	for _, b := range due {
		// stamp first so an overlapping run cannot send it twice
		claimed, err := s.bookings.MarkReminderSent(ctx, b.ID, now)
		if err != nil {
			s.log.Error("Failed to mark reminder", zap.Error(err), zap.String("booking_id", b.ID.String()))
			continue
		}
		if !claimed {
			continue
		}
		s.publish(ctx, events.BookingReminder, events.BookingPayload{
			BookingID: b.ID,
			UserID:    b.UserID,
			StaffID:   b.StaffID,
		})
		sent++
	}
	return sent, nil
}

// ==================== HELPER METHODS ====================

func (s *bookingService) resolveSlot(date, clock string, durationMinutes int) (slot, error) {
	start, err := time.ParseInLocation(dateTimeLayout, date+" "+clock, s.loc)
	if err != nil {
		return slot{}, fieldError("date", "Invalid date or time")
	}
	now := s.now().In(s.loc)

	if !start.After(now) {
		return slot{}, fieldError("date", "Booking must be in the future")
	}
	if start.Weekday() == time.Sunday {
		return slot{}, fieldError("date", "Bookings are not available on Sundays")
	}
	if start.After(now.AddDate(0, 0, s.config.MaxAdvanceDays)) {
		return slot{}, fieldError("date", fmt.Sprintf("Bookings can be made at most %d days ahead", s.config.MaxAdvanceDays))
	}

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc)
	opens := dayStart.Add(time.Duration(s.config.OpenHour) * time.Hour)
	closes := dayStart.Add(time.Duration(s.config.CloseHour) * time.Hour)
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	if start.Before(opens) || end.After(closes) {
		return slot{}, fieldError("time", fmt.Sprintf("Bookings must fit between %02d:00 and %02d:00",
			s.config.OpenHour, s.config.CloseHour))
	}

	return slot{
		start:    start,
		end:      end,
		dayStart: dayStart,
		dayEnd:   dayStart.AddDate(0, 0, 1),
	}, nil
}

func (s *bookingService) slotOf(b *entity.Booking) slot {
	local := b.StartAt.In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return slot{start: b.StartAt, end: b.EndAt, dayStart: dayStart, dayEnd: dayStart.AddDate(0, 0, 1)}
}

func (s *bookingService) price(ctx context.Context, userID uuid.UUID, svc *entity.CleaningService, sl slot) (PriceBreakdown, error) {
	active, err := s.bookings.CountActiveBetween(ctx, sl.dayStart, sl.dayEnd)
	if err != nil {
		return PriceBreakdown{}, fmt.Errorf("count active bookings: %w", err)
	}
	capacity, err := s.staff.DailyCapacity(ctx)
	if err != nil {
		return PriceBreakdown{}, fmt.Errorf("daily capacity: %w", err)
	}
	completed, err := s.bookings.CountCompletedByUser(ctx, userID)
	if err != nil {
		return PriceBreakdown{}, fmt.Errorf("count completed bookings: %w", err)
	}

	return CalculatePrice(PriceInput{
		BasePrice:         svc.BasePrice,
		Start:             sl.start.In(s.loc),
		ActiveBookings:    active,
		DailyCapacity:     capacity,
		CompletedBookings: completed,
	}), nil
}

func (s *bookingService) checkStaffFree(ctx context.Context, staffID uuid.UUID, sl slot, exclude uuid.UUID) (*entity.StaffCandidate, error) {
	candidates, err := s.staff.FindCandidates(ctx, repository.CandidateQuery{
		Start:          sl.start,
		End:            sl.end,
		DayStart:       sl.dayStart,
		DayEnd:         sl.dayEnd,
		ExcludeBooking: exclude,
		StaffID:        &staffID,
	})
	if err != nil {
		return nil, fmt.Errorf("check staff availability: %w", err)
	}
	if len(candidates) == 0 {
		return nil, newError(ErrNotFound, "staff member not found")
	}

	c := candidates[0]
	switch {
	case !c.Profile.IsAvailable:
		return nil, newError(ErrConflict, "staff member is not available")
	case c.HasConflict:
		return nil, newError(ErrConflict, "staff member is already booked at this time")
	case c.DayLoad >= c.Profile.MaxDailyBookings:
		return nil, newError(ErrConflict, "staff member is fully booked that day")
	}
	return c, nil
}

func (s *bookingService) rank(ctx context.Context, detail *entity.BookingDetail) ([]RankedStaff, error) {
	sl := s.slotOf(&detail.Booking)
	candidates, err := s.staff.FindCandidates(ctx, repository.CandidateQuery{
		Start:          sl.start,
		End:            sl.end,
		DayStart:       sl.dayStart,
		DayEnd:         sl.dayEnd,
		ExcludeBooking: detail.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("find staff candidates: %w", err)
	}
	return RankStaff(candidates, detail.ServiceCategory), nil
}

func (s *bookingService) assign(ctx context.Context, booking *entity.Booking, staffID uuid.UUID) error {
	sl := s.slotOf(booking)
	if err := s.bookings.AssignStaff(ctx, booking.ID, staffID, sl.dayStart, sl.dayEnd); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return newError(ErrConflict, "booking changed while assigning staff")
		}
		if conflict := slotConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("assign staff: %w", err)
	}
	booking.StaffID = &staffID

	s.publish(ctx, events.BookingAssigned, events.BookingPayload{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		StaffID:   &staffID,
	})
	return nil
}

// slotConflict turns a lost race for an interval into a conflict error.
func slotConflict(err error) error {
	switch {
	case errors.Is(err, repository.ErrCustomerOverlap):
		return newError(ErrConflict, "you already have a booking that overlaps this time")
	case errors.Is(err, repository.ErrStaffOverlap):
		return newError(ErrConflict, "staff member is already booked at this time")
	case errors.Is(err, repository.ErrStaffFull):
		return newError(ErrConflict, "staff member is fully booked that day")
	}
	return nil
}

// transition applies a legal status move and its side effects.
func (s *bookingService) transition(ctx context.Context, booking *entity.Booking, next entity.BookingStatus, reason *string) error {
	if !booking.Status.CanTransitionTo(next) {
		return newError(ErrInvalidState, "cannot move a booking from %s to %s", booking.Status, next)
	}

	var storedReason *string
	if next == entity.BookingStatusCancelled {
		storedReason = reason
	}

	ok, err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, next, storedReason)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if !ok {
		return newError(ErrConflict, "booking status changed, reload and try again")
	}
	booking.Status = next
	s.metrics.BookingTransition.WithLabelValues(string(next)).Inc()

	payload := events.BookingPayload{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		StaffID:   booking.StaffID,
	}

	switch next {
	case entity.BookingStatusCompleted:
		if booking.StaffID != nil {
			if err := s.staff.IncrementCompletedJobs(ctx, *booking.StaffID); err != nil {
				s.log.Error("Failed to count completed job", zap.Error(err), zap.String("staff_id", booking.StaffID.String()))
			}
		}
		s.publish(ctx, events.BookingCompleted, payload)
	case entity.BookingStatusCancelled:
		if reason != nil {
			payload.Reason = *reason
		}
		s.publish(ctx, events.BookingCancelled, payload)
	case entity.BookingStatusConfirmed:
		s.publish(ctx, events.BookingConfirmed, payload)
		if s.config.AutoAssignOnConfirm && booking.StaffID == nil {
			if _, err := s.AutoAssign(ctx, booking.ID); err != nil {
				s.log.Warn("Auto-assign after confirmation failed", zap.Error(err), zap.String("booking_id", booking.ID.String()))
			}
		}
	}
	return nil
}

func (s *bookingService) list(ctx context.Context, filter entity.BookingFilter, req request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if req.Status != nil {
		status := entity.BookingStatus(*req.Status)
		if !status.Valid() {
			return nil, fieldError("status", "Unknown booking status")
		}
		filter.Status = &status
	}

	details, err := s.bookings.FindAll(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	total, err := s.bookings.CountAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	data := make([]response.BookingResponse, 0, len(details))
	for _, d := range details {
		data = append(data, response.BookingDetailToResponse(d))
	}
	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *bookingService) activeService(ctx context.Context, rawID string) (*entity.CleaningService, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fieldError("service_id", "Must be a valid UUID")
	}
	svc, err := s.services.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if svc == nil || !svc.IsActive {
		return nil, newError(ErrNotFound, "service not found")
	}
	return svc, nil
}

func (s *bookingService) find(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, newError(ErrNotFound, "booking not found")
	}
	return booking, nil
}

func (s *bookingService) findDetail(ctx context.Context, id uuid.UUID) (*entity.BookingDetail, error) {
	detail, err := s.bookings.FindDetailByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if detail == nil {
		return nil, newError(ErrNotFound, "booking not found")
	}
	return detail, nil
}

func (s *bookingService) detailResponse(ctx context.Context, id uuid.UUID) (*response.BookingResponse, error) {
	detail, err := s.findDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := response.BookingDetailToResponse(detail)
	return &resp, nil
}

func (s *bookingService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.log.Warn("Failed to publish event", zap.Error(err), zap.String("event", eventType))
	}
}

func canView(actor Actor, b *entity.Booking) bool {
	if actor.IsAdmin() || b.UserID == actor.ID {
		return true
	}
	return b.StaffID != nil && *b.StaffID == actor.ID
}

func assignable(status entity.BookingStatus) bool {
	return status == entity.BookingStatusPending || status == entity.BookingStatusConfirmed
}
