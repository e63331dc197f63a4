package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewService interface {
	Create(ctx context.Context, userID uuid.UUID, req *request.CreateReviewRequest) (*response.ReviewResponse, error)
	ListByService(ctx context.Context, serviceID uuid.UUID, page request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
	ListMine(ctx context.Context, userID uuid.UUID, page request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
	Update(ctx context.Context, userID, id uuid.UUID, req *request.UpdateReviewRequest) (*response.ReviewResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Stats(ctx context.Context, serviceID uuid.UUID) (*response.ReviewStatsResponse, error)
}

type reviewService struct {
	reviews  repository.ReviewRepository
	bookings repository.BookingRepository
	services repository.ServiceRepository
	staff    repository.StaffRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewReviewService(repo *repository.Repository, log *zap.Logger) ReviewService {
	return &reviewService{
		reviews:  repo.Review,
		bookings: repo.Booking,
		services: repo.Service,
		staff:    repo.Staff,
		log:      log.With(zap.String("service", "review")),
		now:      time.Now,
	}
}

func (s *reviewService) Create(ctx context.Context, userID uuid.UUID, req *request.CreateReviewRequest) (*response.ReviewResponse, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fieldError("rating", "Must be between 1 and 5")
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fieldError("booking_id", "Must be a valid UUID")
	}

	// 1. Only the customer of a completed booking may review it
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, newError(ErrNotFound, "booking not found")
	}
	if booking.UserID != userID {
		return nil, newError(ErrForbidden, "you can only review your own bookings")
	}
	if booking.Status != entity.BookingStatusCompleted {
		return nil, newError(ErrInvalidState, "only completed bookings can be reviewed")
	}

	// 2. One review per booking; the unique index settles races
	now := s.now()
	review := &entity.Review{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID: booking.ID,
		UserID:    userID,
		ServiceID: booking.ServiceID,
		StaffID:   booking.StaffID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "this booking has already been reviewed")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.refreshStaffRating(ctx, review.StaffID)

	s.log.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.Int("rating", review.Rating))

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) ListByService(ctx context.Context, serviceID uuid.UUID, page request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if svc == nil {
		return nil, newError(ErrNotFound, "service not found")
	}

	reviews, err := s.reviews.FindByService(ctx, serviceID, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list service reviews: %w", err)
	}
	total, err := s.reviews.CountByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("count service reviews: %w", err)
	}
	return paginateReviews(reviews, page, total), nil
}

func (s *reviewService) ListMine(ctx context.Context, userID uuid.UUID, page request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	reviews, err := s.reviews.FindByUser(ctx, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}
	total, err := s.reviews.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count user reviews: %w", err)
	}
	return paginateReviews(reviews, page, total), nil
}

func (s *reviewService) Update(ctx context.Context, userID, id uuid.UUID, req *request.UpdateReviewRequest) (*response.ReviewResponse, error) {
	review, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, newError(ErrForbidden, "you can only edit your own reviews")
	}

	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			return nil, fieldError("rating", "Must be between 1 and 5")
		}
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = req.Comment
	}
	review.UpdatedAt = s.now()

	if err := s.reviews.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, newError(ErrNotFound, "review not found")
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	s.refreshStaffRating(ctx, review.StaffID)

	resp := response.ReviewToResponse(review)
	return &resp, nil
}

func (s *reviewService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	review, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if review.UserID != actor.ID && !actor.IsAdmin() {
		return newError(ErrForbidden, "you can only delete your own reviews")
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return newError(ErrNotFound, "review not found")
		}
		return fmt.Errorf("delete review: %w", err)
	}
	s.refreshStaffRating(ctx, review.StaffID)

	s.log.Info("Review deleted", zap.String("review_id", id.String()), zap.String("actor_id", actor.ID.String()))
	return nil
}

func (s *reviewService) Stats(ctx context.Context, serviceID uuid.UUID) (*response.ReviewStatsResponse, error) {
	stats, err := s.reviews.StatsByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}

	dist := make(map[string]int64, 5)
	for rating := 1; rating <= 5; rating++ {
		dist[strconv.Itoa(rating)] = stats.Distribution[rating]
	}
	return &response.ReviewStatsResponse{
		ServiceID:     serviceID.String(),
		AverageRating: stats.Average,
		ReviewCount:   stats.Count,
		Distribution:  dist,
	}, nil
}

func (s *reviewService) find(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	if review == nil {
		return nil, newError(ErrNotFound, "review not found")
	}
	return review, nil
}

// refreshStaffRating is best effort; the review itself is already stored.
func (s *reviewService) refreshStaffRating(ctx context.Context, staffID *uuid.UUID) {
	if staffID == nil {
		return
	}
	if err := s.staff.RecalculateRating(ctx, *staffID); err != nil {
		s.log.Error("Failed to recalculate staff rating", zap.Error(err), zap.String("staff_id", staffID.String()))
	}
}

func paginateReviews(reviews []*entity.Review, page request.PaginatedRequest, total int64) *response.PaginatedResponse[response.ReviewResponse] {
	data := make([]response.ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		data = append(data, response.ReviewToResponse(r))
	}
	return response.NewPaginatedResponse(data, page.Page, page.Limit(), total)
}
