package entity

import "github.com/shopspring/decimal"

type ServiceCategory string

const (
	CategoryResidential      ServiceCategory = "residential"
	CategoryCommercial       ServiceCategory = "commercial"
	CategoryDeepCleaning     ServiceCategory = "deep_cleaning"
	CategoryMoveInOut        ServiceCategory = "move_in_out"
	CategoryPostConstruction ServiceCategory = "post_construction"
	CategoryCarpet           ServiceCategory = "carpet"
	CategoryWindow           ServiceCategory = "window"
)

// CleaningService is one offering in the catalog.
type CleaningService struct {
	Base
	Name            string          `db:"name"`
	Description     string          `db:"description"`
	Category        ServiceCategory `db:"category"`
	BasePrice       decimal.Decimal `db:"base_price"`
	DurationMinutes int             `db:"duration_minutes"`
	ImageURL        *string         `db:"image_url"`
	IsActive        bool            `db:"is_active"`
}
