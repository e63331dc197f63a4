package usecase

import (
	"context"
	"fmt"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRecommendations = 5
	maxRecommendations     = 20

	ReasonBookedTogether  = "frequently_booked_together"
	ReasonPopularCategory = "popular_in_category"
	ReasonPopular         = "popular"
)

type RecommendationService interface {
	ForService(ctx context.Context, serviceID uuid.UUID, limit int) ([]response.RecommendationResponse, error)
	ForUser(ctx context.Context, userID uuid.UUID, limit int) ([]response.RecommendationResponse, error)
}

type recommendationService struct {
	recommendations repository.RecommendationRepository
	services        repository.ServiceRepository
	log             *zap.Logger
}

func NewRecommendationService(repo *repository.Repository, log *zap.Logger) RecommendationService {
	return &recommendationService{
		recommendations: repo.Recommendation,
		services:        repo.Service,
		log:             log.With(zap.String("service", "recommendation")),
	}
}

// ForService returns services co-booked with serviceID, topped up with popular ones from its category.
func (s *recommendationService) ForService(ctx context.Context, serviceID uuid.UUID, limit int) ([]response.RecommendationResponse, error) {
	limit = clampLimit(limit)

	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if svc == nil || !svc.IsActive {
		return nil, newError(ErrNotFound, "service not found")
	}

	co, err := s.recommendations.CoBookedServices(ctx, serviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("co-booked services: %w", err)
	}

	out := newRecommendationSet(limit, serviceID)
	out.add(co, ReasonBookedTogether)

	if !out.full() {
		category := svc.Category
		popular, err := s.recommendations.PopularServices(ctx, &category, out.seenIDs(), limit)
		if err != nil {
			return nil, fmt.Errorf("popular services: %w", err)
		}
		out.add(popular, ReasonPopularCategory)
	}
	return out.items, nil
}

// ForUser recommends services the user never booked, falling back to what is popular overall.
func (s *recommendationService) ForUser(ctx context.Context, userID uuid.UUID, limit int) ([]response.RecommendationResponse, error) {
	limit = clampLimit(limit)

	co, err := s.recommendations.CoBookedForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("co-booked for user: %w", err)
	}

	out := newRecommendationSet(limit)
	out.add(co, ReasonBookedTogether)

	if !out.full() {
		popular, err := s.recommendations.PopularServices(ctx, nil, out.seenIDs(), limit)
		if err != nil {
			return nil, fmt.Errorf("popular services: %w", err)
		}
		out.add(popular, ReasonPopular)
	}

	s.log.Debug("Recommendations built", zap.String("user_id", userID.String()), zap.Int("count", len(out.items)))
	return out.items, nil
}

// recommendationSet collects up to limit distinct active services in insertion order.
type recommendationSet struct {
	limit int
	seen  map[uuid.UUID]struct{}
	items []response.RecommendationResponse
}

func newRecommendationSet(limit int, exclude ...uuid.UUID) *recommendationSet {
	set := &recommendationSet{
		limit: limit,
		seen:  make(map[uuid.UUID]struct{}, limit+len(exclude)),
		items: make([]response.RecommendationResponse, 0, limit),
	}
	for _, id := range exclude {
		set.seen[id] = struct{}{}
	}
	return set
}

func (r *recommendationSet) add(candidates []entity.ServiceAffinity, reason string) {
	for _, c := range candidates {
		if r.full() {
			return
		}
		if c.Service == nil || !c.Service.IsActive {
			continue
		}
		if _, dup := r.seen[c.Service.ID]; dup {
			continue
		}
		r.seen[c.Service.ID] = struct{}{}
		r.items = append(r.items, response.RecommendationResponse{
			Service: response.ServiceToResponse(c.Service),
			Reason:  reason,
			Score:   c.Score,
		})
	}
}

func (r *recommendationSet) full() bool { return len(r.items) >= r.limit }

func (r *recommendationSet) seenIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.seen))
	for id := range r.seen {
		ids = append(ids, id)
	}
	return ids
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecommendations
	}
	if limit > maxRecommendations {
		return maxRecommendations
	}
	return limit
}
