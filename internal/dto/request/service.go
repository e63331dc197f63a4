package request

import "github.com/shopspring/decimal"

type CreateServiceRequest struct {
	Name            string          `json:"name" validate:"required,min=3,max=100"`
	Description     string          `json:"description" validate:"max=2000"`
	Category        string          `json:"category" validate:"required,oneof=residential commercial deep_cleaning move_in_out post_construction carpet window"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,min=30,max=720"`
	IsActive        *bool           `json:"is_active,omitempty"`
}

type UpdateServiceRequest struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category        *string          `json:"category,omitempty" validate:"omitempty,oneof=residential commercial deep_cleaning move_in_out post_construction carpet window"`
	BasePrice       *decimal.Decimal `json:"base_price,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty" validate:"omitempty,min=30,max=720"`
	IsActive        *bool            `json:"is_active,omitempty"`
}

// ServiceFilter comes from the query string.
type ServiceFilter struct {
	Category *string `validate:"omitempty,oneof=residential commercial deep_cleaning move_in_out post_construction carpet window"`
	PaginatedRequest
}
