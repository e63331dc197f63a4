package response

import (
	"time"

	"cleaning-booking/internal/data/entity"

	"github.com/shopspring/decimal"
)

type ServiceResponse struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Category        entity.ServiceCategory `json:"category"`
	BasePrice       decimal.Decimal        `json:"base_price"`
	DurationMinutes int                    `json:"duration_minutes"`
	ImageURL        *string                `json:"image_url,omitempty"`
	IsActive        bool                   `json:"is_active"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func ServiceToResponse(svc *entity.CleaningService) ServiceResponse {
	return ServiceResponse{
		ID:              svc.ID.String(),
		Name:            svc.Name,
		Description:     svc.Description,
		Category:        svc.Category,
		BasePrice:       svc.BasePrice,
		DurationMinutes: svc.DurationMinutes,
		ImageURL:        svc.ImageURL,
		IsActive:        svc.IsActive,
		CreatedAt:       svc.CreatedAt,
		UpdatedAt:       svc.UpdatedAt,
	}
}

type RecommendationResponse struct {
	Service ServiceResponse `json:"service"`
	Reason  string          `json:"reason"`
	Score   int64           `json:"score"`
}
