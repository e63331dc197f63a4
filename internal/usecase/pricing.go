package usecase

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	demandHigh     = decimal.RequireFromString("1.25")
	demandMedium   = decimal.RequireFromString("1.10")
	rushFactor     = decimal.RequireFromString("1.15")
	saturdayFactor = decimal.RequireFromString("1.20")
	fridayFactor   = decimal.RequireFromString("1.10")
	minPriceRatio  = decimal.RequireFromString("0.5")
	maxPriceRatio  = decimal.NewFromInt(2)
)

// PriceInput is everything the dynamic price depends on.
type PriceInput struct {
	BasePrice         decimal.Decimal
	Start             time.Time // in the booking timezone
	ActiveBookings    int       // active bookings on the same day
	DailyCapacity     int
	CompletedBookings int // by the customer
}

type PriceBreakdown struct {
	BasePrice       decimal.Decimal
	Utilisation     float64
	DemandFactor    decimal.Decimal
	RushFactor      decimal.Decimal
	DayFactor       decimal.Decimal
	LoyaltyDiscount decimal.Decimal
	Total           decimal.Decimal
	Clamped         bool
}

// CalculatePrice returns base × demand × rush × day × (1 − loyalty), rounded
// to cents and clamped to [0.5×base, 2×base].
func CalculatePrice(in PriceInput) PriceBreakdown {
	util, demand := demandFactor(in.ActiveBookings, in.DailyCapacity)
	rush := rushHourFactor(in.Start)
	day := dayOfWeekFactor(in.Start.Weekday())
	loyalty := loyaltyDiscount(in.CompletedBookings)

	total := in.BasePrice.
		Mul(demand).
		Mul(rush).
		Mul(day).
		Mul(decimal.NewFromInt(1).Sub(loyalty)).
		Round(2)

	lower := in.BasePrice.Mul(minPriceRatio).Round(2)
	upper := in.BasePrice.Mul(maxPriceRatio).Round(2)
	clamped := false
	if total.LessThan(lower) {
		total, clamped = lower, true
	}
	if total.GreaterThan(upper) {
		total, clamped = upper, true
	}

	return PriceBreakdown{
		BasePrice:       in.BasePrice,
		Utilisation:     util,
		DemandFactor:    demand,
		RushFactor:      rush,
		DayFactor:       day,
		LoyaltyDiscount: loyalty,
		Total:           total,
		Clamped:         clamped,
	}
}

func demandFactor(active, capacity int) (float64, decimal.Decimal) {
	if capacity <= 0 {
		return 1, demandHigh
	}
	util := float64(active) / float64(capacity)
	switch {
	case util >= 0.8:
		return util, demandHigh
	case util >= 0.5:
		return util, demandMedium
	default:
		return util, decimal.NewFromInt(1)
	}
}

func rushHourFactor(start time.Time) decimal.Decimal {
	h := start.Hour()
	if (h >= 7 && h < 9) || (h >= 17 && h < 19) {
		return rushFactor
	}
	return decimal.NewFromInt(1)
}

func dayOfWeekFactor(day time.Weekday) decimal.Decimal {
	switch day {
	case time.Saturday:
		return saturdayFactor
	case time.Friday:
		return fridayFactor
	default:
		return decimal.NewFromInt(1)
	}
}

func loyaltyDiscount(completed int) decimal.Decimal {
	switch {
	case completed >= 10:
		return decimal.RequireFromString("0.15")
	case completed >= 5:
		return decimal.RequireFromString("0.10")
	case completed >= 2:
		return decimal.RequireFromString("0.05")
	default:
		return decimal.Zero
	}
}
