package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MealPlan string

const (
	MealRoomOnly     MealPlan = "room_only"
	MealBreakfast    MealPlan = "breakfast"
	MealHalfBoard    MealPlan = "half_board"
	MealFullBoard    MealPlan = "full_board"
	MealAllInclusive MealPlan = "all_inclusive"
)

// DefaultMealPlanRates are per person per night.
func DefaultMealPlanRates() map[MealPlan]decimal.Decimal {
	return map[MealPlan]decimal.Decimal{
		MealRoomOnly:     decimal.Zero,
		MealBreakfast:    decimal.NewFromInt(50),
		MealHalfBoard:    decimal.NewFromInt(90),
		MealFullBoard:    decimal.NewFromInt(130),
		MealAllInclusive: decimal.NewFromInt(180),
	}
}

// DefaultExtraPrices is the fixed extras catalog, priced per unit.
func DefaultExtraPrices() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"airport_transfer": decimal.NewFromInt(75),
		"late_checkout":    decimal.NewFromInt(40),
		"early_checkin":    decimal.NewFromInt(40),
		"parking":          decimal.NewFromInt(20),
		"extra_bed":        decimal.NewFromInt(35),
		"spa_access":       decimal.NewFromInt(60),
	}
}

// ExtraRequest asks for Quantity units of an extra. Price is the caller's fallback
// when ID is not in the catalog.
type ExtraRequest struct {
	ID       string          `json:"id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type PricingOptions struct {
	MealPlan MealPlan        `json:"meal_plan"`
	Extras   []ExtraRequest  `json:"extras"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Adults   int             `json:"adults"`
}

type NightlyLine struct {
	Date      time.Time       `json:"date"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// RoomBreakdown prices one room type over a stay.
type RoomBreakdown struct {
	RoomTypeID   int64           `json:"room_type_id"`
	Quantity     int             `json:"quantity"`
	Adults       int             `json:"adults"`
	Nights       int             `json:"nights"`
	Nightly      []NightlyLine   `json:"nightly"`
	StayPrice    decimal.Decimal `json:"stay_price"`
	RoomSubtotal decimal.Decimal `json:"room_subtotal"`
	MealTotal    decimal.Decimal `json:"meal_total"`
	ExtrasTotal  decimal.Decimal `json:"extras_total"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// QuoteBreakdown aggregates several room types taxed once at booking level.
type QuoteBreakdown struct {
	Rooms        []RoomBreakdown `json:"rooms"`
	Nights       int             `json:"nights"`
	RoomNights   int             `json:"room_nights"`
	RoomSubtotal decimal.Decimal `json:"room_subtotal"`
	MealTotal    decimal.Decimal `json:"meal_total"`
	ExtrasTotal  decimal.Decimal `json:"extras_total"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}
