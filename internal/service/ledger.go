package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelbooking/internal/clock"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// InventoryLedger owns the per-night room counts. Every mutation runs inside a
// transaction; calls made with a transactional ctx join it.
type InventoryLedger struct {
	store  domain.Store
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewInventoryLedger(store domain.Store, clk clock.Clock, logger *zerolog.Logger) *InventoryLedger {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &InventoryLedger{
		store:  store,
		clock:  clk,
		logger: logging.Component(logger, "ledger"),
	}
}

func validateRange(start, end time.Time) (int, error) {
	nights := models.Nights(start, end)
	if nights <= 0 {
		return 0, domain.ErrInvalidDateRange
	}
	return nights, nil
}

// GetRange returns the stored nights in [start, end) without locking them.
func (l *InventoryLedger) GetRange(ctx context.Context, roomTypeID int64, start, end time.Time) ([]*models.InventoryDay, error) {
	if _, err := validateRange(start, end); err != nil {
		return nil, err
	}
	return l.store.GetInventoryRange(ctx, roomTypeID, models.DateOf(start), models.DateOf(end))
}

// CheckAvailabilityLocked locks every night of the range and returns the minimum
// available_rooms. Missing or blocked nights, or a minimum below required, yield
// ErrUnavailable.
func (l *InventoryLedger) CheckAvailabilityLocked(ctx context.Context, roomTypeID int64, start, end time.Time, required int) (int, error) {
	nights, err := validateRange(start, end)
	if err != nil {
		return 0, err
	}
	if required < 1 {
		return 0, domain.ErrInvalidQuantity
	}

	minAvailable := 0
	err = l.store.WithinTx(ctx, func(txCtx context.Context) error {
		days, err := l.store.LockInventoryRange(txCtx, roomTypeID, models.DateOf(start), models.DateOf(end))
		if err != nil {
			return err
		}
		if len(days) != nights {
			return domain.ErrUnavailable
		}
		for i, d := range days {
			if !d.IsAvailable {
				return domain.ErrUnavailable
			}
			if i == 0 || d.AvailableRooms < minAvailable {
				minAvailable = d.AvailableRooms
			}
		}
		if minAvailable < required {
			return domain.ErrUnavailable
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return minAvailable, nil
}

// Decrease takes qty rooms from every night in the range. A night that cannot
// cover qty fails the whole call and nothing is changed.
func (l *InventoryLedger) Decrease(ctx context.Context, roomTypeID int64, start, end time.Time, qty int) error {
	nights, err := validateRange(start, end)
	if err != nil {
		return err
	}
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	err = l.store.WithinTx(ctx, func(txCtx context.Context) error {
		rows, err := l.store.DecreaseAvailable(txCtx, roomTypeID, models.DateOf(start), models.DateOf(end), qty)
		if err != nil {
			return err
		}
		if rows != int64(nights) {
			return domain.ErrUnavailable
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			metrics.IncInventory("decrease_rejected")
		}
		return err
	}
	metrics.IncInventory("decrease")
	l.logger.Debug().
		Int64("room_type_id", roomTypeID).
		Str("from", start.Format(models.DateLayout)).
		Str("to", end.Format(models.DateLayout)).
		Int("qty", qty).
		Msg("inventory decreased")
	return nil
}

// Increase returns qty rooms to every stored night in the range, never above
// total_rooms. Nights without a row are skipped.
func (l *InventoryLedger) Increase(ctx context.Context, roomTypeID int64, start, end time.Time, qty int) error {
	if _, err := validateRange(start, end); err != nil {
		return err
	}
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	rows, err := l.store.IncreaseAvailable(ctx, roomTypeID, models.DateOf(start), models.DateOf(end), qty)
	if err != nil {
		return err
	}
	metrics.IncInventory("increase")
	l.logger.Debug().
		Int64("room_type_id", roomTypeID).
		Str("from", start.Format(models.DateLayout)).
		Str("to", end.Format(models.DateLayout)).
		Int("qty", qty).
		Int64("rows", rows).
		Msg("inventory restored")
	return nil
}

// InitializeRange creates rows for nights that do not exist yet. Existing nights
// are left untouched. A nil price means "use the room type base price".
func (l *InventoryLedger) InitializeRange(ctx context.Context, roomTypeID int64, start, end time.Time, totalRooms int, price *decimal.Decimal) (int64, error) {
	if _, err := validateRange(start, end); err != nil {
		return 0, err
	}
	if totalRooms < 0 {
		return 0, domain.ErrInvalidCapacity
	}
	nullPrice, err := toNullPrice(price)
	if err != nil {
		return 0, err
	}
	rows, err := l.store.InsertMissingInventory(ctx, roomTypeID, models.DateOf(start), models.DateOf(end), totalRooms, nullPrice)
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		metrics.IncInventory("initialize")
		l.logger.Info().Int64("room_type_id", roomTypeID).Int64("nights", rows).Msg("inventory initialized")
	}
	return rows, nil
}

func (l *InventoryLedger) BlockDates(ctx context.Context, roomTypeID int64, start, end time.Time) (int64, error) {
	return l.setAvailability(ctx, roomTypeID, start, end, false)
}

func (l *InventoryLedger) UnblockDates(ctx context.Context, roomTypeID int64, start, end time.Time) (int64, error) {
	return l.setAvailability(ctx, roomTypeID, start, end, true)
}

func (l *InventoryLedger) setAvailability(ctx context.Context, roomTypeID int64, start, end time.Time, available bool) (int64, error) {
	if _, err := validateRange(start, end); err != nil {
		return 0, err
	}
	rows, err := l.store.SetInventoryAvailability(ctx, roomTypeID, models.DateOf(start), models.DateOf(end), available)
	if err != nil {
		return 0, err
	}
	op := "block"
	if available {
		op = "unblock"
	}
	metrics.IncInventory(op)
	l.logger.Info().Int64("room_type_id", roomTypeID).Str("op", op).Int64("nights", rows).Msg("inventory availability changed")
	return rows, nil
}

// SetSeasonalPrice overrides the nightly price for stored nights. nil clears the
// override so the base price applies again.
func (l *InventoryLedger) SetSeasonalPrice(ctx context.Context, roomTypeID int64, start, end time.Time, price *decimal.Decimal) (int64, error) {
	if _, err := validateRange(start, end); err != nil {
		return 0, err
	}
	nullPrice, err := toNullPrice(price)
	if err != nil {
		return 0, err
	}
	rows, err := l.store.SetInventoryPrice(ctx, roomTypeID, models.DateOf(start), models.DateOf(end), nullPrice)
	if err != nil {
		return 0, err
	}
	metrics.IncInventory("price")
	return rows, nil
}

// ResizeCapacity changes total_rooms for stored nights and moves available_rooms
// by the same delta, floored at zero.
func (l *InventoryLedger) ResizeCapacity(ctx context.Context, roomTypeID int64, start, end time.Time, totalRooms int) (int64, error) {
	if _, err := validateRange(start, end); err != nil {
		return 0, err
	}
	if totalRooms < 0 {
		return 0, domain.ErrInvalidCapacity
	}
	rows, err := l.store.ResizeInventory(ctx, roomTypeID, models.DateOf(start), models.DateOf(end), totalRooms)
	if err != nil {
		return 0, err
	}
	metrics.IncInventory("resize")
	l.logger.Info().Int64("room_type_id", roomTypeID).Int("total_rooms", totalRooms).Int64("nights", rows).Msg("inventory resized")
	return rows, nil
}

// Availability is the display view: one entry per night of the range with active
// holds subtracted. Nights without a row are reported unavailable.
func (l *InventoryLedger) Availability(ctx context.Context, roomTypeID int64, start, end time.Time) ([]models.NightAvailability, error) {
	if _, err := validateRange(start, end); err != nil {
		return nil, err
	}
	rt, err := l.store.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	from, to := models.DateOf(start), models.DateOf(end)
	days, err := l.store.GetInventoryRange(ctx, roomTypeID, from, to)
	if err != nil {
		return nil, err
	}
	holds, err := l.store.ListActiveHolds(ctx, roomTypeID, from, to, l.clock.Now())
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*models.InventoryDay, len(days))
	for _, d := range days {
		byDate[d.Date.Format(models.DateLayout)] = d
	}

	nights := models.EachNight(from, to)
	result := make([]models.NightAvailability, 0, len(nights))
	for _, night := range nights {
		entry := models.NightAvailability{Date: night, Price: rt.BasePrice}
		d, ok := byDate[night.Format(models.DateLayout)]
		if !ok {
			result = append(result, entry)
			continue
		}
		entry.TotalRooms = d.TotalRooms
		entry.AvailableRooms = d.AvailableRooms
		entry.IsAvailable = d.IsAvailable
		if d.Price.Valid {
			entry.Price = d.Price.Decimal
		}
		for _, h := range holds {
			if !night.Before(models.DateOf(h.CheckIn)) && night.Before(models.DateOf(h.CheckOut)) {
				entry.HeldRooms += h.Quantity
			}
		}
		if entry.IsAvailable {
			entry.Effective = max(0, entry.AvailableRooms-entry.HeldRooms)
		}
		result = append(result, entry)
	}
	return result, nil
}

func toNullPrice(price *decimal.Decimal) (decimal.NullDecimal, error) {
	if price == nil {
		return decimal.NullDecimal{}, nil
	}
	if price.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s", domain.ErrInvalidPrice, price.String())
	}
	return decimal.NewNullDecimal(price.Round(2)), nil
}
