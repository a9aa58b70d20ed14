package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"hotelbooking/internal/clock"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PricingEngine computes stay prices and cancellation refunds. It only reads.
type PricingEngine struct {
	store          domain.Store
	clock          clock.Clock
	mealRates      map[models.MealPlan]decimal.Decimal
	extras         map[string]decimal.Decimal
	defaultTaxRate decimal.Decimal
	checkInHour    int
	logger         *zerolog.Logger
}

type PricingOption func(*PricingEngine)

// WithMealRates replaces the per person per night meal plan table.
func WithMealRates(rates map[models.MealPlan]decimal.Decimal) PricingOption {
	return func(e *PricingEngine) {
		if len(rates) > 0 {
			e.mealRates = rates
		}
	}
}

// WithExtraPrices replaces the extras catalog.
func WithExtraPrices(prices map[string]decimal.Decimal) PricingOption {
	return func(e *PricingEngine) {
		if len(prices) > 0 {
			e.extras = prices
		}
	}
}

func WithDefaultTaxRate(rate decimal.Decimal) PricingOption {
	return func(e *PricingEngine) {
		e.defaultTaxRate = rate
	}
}

// WithCheckInHour measures lead times to this UTC hour of the check-in date
// instead of its midnight.
func WithCheckInHour(hour int) PricingOption {
	return func(e *PricingEngine) {
		if hour >= 0 && hour < 24 {
			e.checkInHour = hour
		}
	}
}

func NewPricingEngine(store domain.Store, clk clock.Clock, logger *zerolog.Logger, opts ...PricingOption) *PricingEngine {
	if clk == nil {
		clk = clock.NewSystem()
	}
	e := &PricingEngine{
		store:       store,
		clock:       clk,
		mealRates:   models.DefaultMealPlanRates(),
		extras:      models.DefaultExtraPrices(),
		logger:      logging.Component(logger, "pricing"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *PricingEngine) DefaultTaxRate() decimal.Decimal {
	return e.defaultTaxRate
}

// DefaultOptions is room only at the configured tax rate.
func (e *PricingEngine) DefaultOptions() models.PricingOptions {
	return models.PricingOptions{MealPlan: models.MealRoomOnly, TaxRate: e.defaultTaxRate}
}

func (e *PricingEngine) mealRate(plan models.MealPlan) (decimal.Decimal, error) {
	if plan == "" {
		plan = models.MealRoomOnly
	}
	rate, ok := e.mealRates[plan]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidMealPlan, plan)
	}
	return rate, nil
}

func (e *PricingEngine) extrasTotal(extras []models.ExtraRequest) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, x := range extras {
		if x.Quantity < 1 {
			return decimal.Zero, fmt.Errorf("%w: extra %s", domain.ErrInvalidQuantity, x.ID)
		}
		price, ok := e.extras[strings.ToLower(x.ID)]
		if !ok {
			price = x.Price
		}
		if price.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: extra %s", domain.ErrInvalidPrice, x.ID)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(x.Quantity))))
	}
	return round2(total), nil
}

// PriceOneRoomType prices qty rooms of one type, taxed on its own subtotal.
func (e *PricingEngine) PriceOneRoomType(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time, qty int, opts models.PricingOptions) (*models.RoomBreakdown, error) {
	nights, err := validateRange(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	rate, err := e.mealRate(opts.MealPlan)
	if err != nil {
		return nil, err
	}
	extrasTotal, err := e.extrasTotal(opts.Extras)
	if err != nil {
		return nil, err
	}

	rt, err := e.store.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	from, to := models.DateOf(checkIn), models.DateOf(checkOut)
	days, err := e.store.GetInventoryRange(ctx, roomTypeID, from, to)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]decimal.Decimal, len(days))
	for _, d := range days {
		if d.Price.Valid {
			overrides[d.Date.Format(models.DateLayout)] = d.Price.Decimal
		}
	}

	adults := opts.Adults
	if adults < 1 {
		adults = 1
	}
	quantity := decimal.NewFromInt(int64(qty))

	b := &models.RoomBreakdown{
		RoomTypeID: roomTypeID,
		Quantity:   qty,
		Adults:     adults,
		Nights:     nights,
		Nightly:    make([]models.NightlyLine, 0, nights),
		StayPrice:  decimal.Zero,
		TaxRate:    opts.TaxRate,
	}
	roomSubtotal := decimal.Zero
	for _, night := range models.EachNight(from, to) {
		unit, ok := overrides[night.Format(models.DateLayout)]
		if !ok {
			unit = rt.BasePrice
		}
		line := round2(unit.Mul(quantity))
		b.Nightly = append(b.Nightly, models.NightlyLine{Date: night, UnitPrice: unit, LineTotal: line})
		b.StayPrice = b.StayPrice.Add(unit)
		roomSubtotal = roomSubtotal.Add(line)
	}
	b.StayPrice = round2(b.StayPrice)
	b.RoomSubtotal = round2(roomSubtotal)
	b.MealTotal = round2(rate.Mul(decimal.NewFromInt(int64(qty * adults * nights))))
	b.ExtrasTotal = extrasTotal
	b.Subtotal = b.RoomSubtotal.Add(b.MealTotal).Add(b.ExtrasTotal)
	b.Tax = round2(b.Subtotal.Mul(opts.TaxRate))
	b.Total = b.Subtotal.Add(b.Tax)

	metrics.IncQuote("room_type")
	return b, nil
}

// PriceMultiRoom prices each selection untaxed and without extras, then adds the
// booking-level extras and applies tax once to the aggregate.
func (e *PricingEngine) PriceMultiRoom(ctx context.Context, selections []models.RoomSelection, checkIn, checkOut time.Time, opts models.PricingOptions) (*models.QuoteBreakdown, error) {
	nights, err := validateRange(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if len(selections) == 0 {
		return nil, domain.ErrInvalidQuantity
	}
	extrasTotal, err := e.extrasTotal(opts.Extras)
	if err != nil {
		return nil, err
	}

	q := &models.QuoteBreakdown{
		Rooms:        make([]models.RoomBreakdown, 0, len(selections)),
		Nights:       nights,
		RoomSubtotal: decimal.Zero,
		MealTotal:    decimal.Zero,
		TaxRate:      opts.TaxRate,
	}
	for _, sel := range selections {
		adults := sel.Adults
		if adults < 1 {
			adults = opts.Adults
		}
		line, err := e.PriceOneRoomType(ctx, sel.RoomTypeID, checkIn, checkOut, sel.Quantity, models.PricingOptions{
			MealPlan: opts.MealPlan,
			TaxRate:  decimal.Zero,
			Adults:   adults,
		})
		if err != nil {
			return nil, err
		}
		q.Rooms = append(q.Rooms, *line)
		q.RoomNights += line.Nights * line.Quantity
		q.RoomSubtotal = q.RoomSubtotal.Add(line.RoomSubtotal)
		q.MealTotal = q.MealTotal.Add(line.MealTotal)
	}
	q.ExtrasTotal = extrasTotal
	q.Subtotal = q.RoomSubtotal.Add(q.MealTotal).Add(q.ExtrasTotal)
	q.Tax = round2(q.Subtotal.Mul(opts.TaxRate))
	q.Total = q.Subtotal.Add(q.Tax)

	metrics.IncQuote("multi_room")
	return q, nil
}

// LeadTimeHours is the whole hours between now and the check-in date, rounded
// down. Any time past check-in is negative, so no tier at 0 can match it.
func (e *PricingEngine) LeadTimeHours(checkIn time.Time) int {
	arrival := models.DateOf(checkIn).Add(time.Duration(e.checkInHour) * time.Hour)
	return int(math.Floor(arrival.Sub(e.clock.Now()).Hours()))
}

// CalculateRefund applies policy to paid. Without a policy a full refund is given
// when cancelling at least 24 hours ahead and nothing otherwise.
func (e *PricingEngine) CalculateRefund(paid decimal.Decimal, checkIn time.Time, policy *models.CancellationPolicy) models.RefundQuote {
	lead := e.LeadTimeHours(checkIn)

	pct := decimal.Zero
	if policy == nil {
		if lead >= models.FreeCancellationHours {
			pct = hundred
		}
	} else if tier, ok := policy.ApplicableTier(lead); ok {
		pct = tier.RefundPercentage
	}

	refund := round2(paid.Mul(pct).Div(hundred))
	metrics.IncQuote("refund")
	return models.RefundQuote{
		LeadTimeHours:    max(0, lead),
		RefundPercentage: pct,
		RefundAmount:     refund,
		PenaltyAmount:    paid.Sub(refund),
	}
}

// NormalizePolicy validates tiers and sorts them by descending threshold.
func NormalizePolicy(policy *models.CancellationPolicy) error {
	if policy == nil || strings.TrimSpace(policy.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidPolicy)
	}
	if len(policy.Tiers) == 0 {
		return fmt.Errorf("%w: at least one tier is required", domain.ErrInvalidPolicy)
	}
	seen := make(map[int]struct{}, len(policy.Tiers))
	for _, tier := range policy.Tiers {
		if tier.HoursBeforeCheckIn < 0 {
			return fmt.Errorf("%w: negative threshold %d", domain.ErrInvalidPolicy, tier.HoursBeforeCheckIn)
		}
		if tier.RefundPercentage.IsNegative() || tier.RefundPercentage.GreaterThan(hundred) {
			return fmt.Errorf("%w: refund percentage %s out of range", domain.ErrInvalidPolicy, tier.RefundPercentage)
		}
		if _, dup := seen[tier.HoursBeforeCheckIn]; dup {
			return fmt.Errorf("%w: duplicate threshold %d", domain.ErrInvalidPolicy, tier.HoursBeforeCheckIn)
		}
		seen[tier.HoursBeforeCheckIn] = struct{}{}
	}
	policy.Name = strings.TrimSpace(policy.Name)
	policy.SortTiers()
	return nil
}

func (e *PricingEngine) CreateCancellationPolicy(ctx context.Context, policy *models.CancellationPolicy) error {
	if err := NormalizePolicy(policy); err != nil {
		return err
	}
	if err := e.store.CreateCancellationPolicy(ctx, policy); err != nil {
		return err
	}
	e.logger.Info().Int64("policy_id", policy.ID).Str("name", policy.Name).Int("tiers", len(policy.Tiers)).Msg("cancellation policy created")
	return nil
}

func (e *PricingEngine) GetCancellationPolicy(ctx context.Context, id int64) (*models.CancellationPolicy, error) {
	return e.store.GetCancellationPolicy(ctx, id)
}
