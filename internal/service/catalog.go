package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotelbooking/internal/config"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SeedRoomTypes makes sure every seeded room type exists and has inventory for
// horizonDays nights from the given date. Existing room types and inventory rows
// are left as they are, so seeding on every start is safe.
func SeedRoomTypes(ctx context.Context, store domain.CatalogRepository, ledger *InventoryLedger, seeds []config.RoomTypeSeed, from time.Time, horizonDays int, logger *zerolog.Logger) error {
	start := models.DateOf(from)
	end := start.AddDate(0, 0, horizonDays)

	for _, seed := range seeds {
		rt, err := ensureRoomType(ctx, store, seed)
		if err != nil {
			return err
		}

		created, err := ledger.InitializeRange(ctx, rt.ID, start, end, rt.TotalRooms, nil)
		if err != nil {
			return fmt.Errorf("initialize inventory for %s: %w", rt.Code, err)
		}

		for _, sp := range seed.SeasonalPrices {
			if err := applySeasonalPrice(ctx, ledger, rt.ID, sp.From, sp.To, sp.Price); err != nil {
				return fmt.Errorf("seasonal price for %s: %w", rt.Code, err)
			}
		}

		if logger != nil {
			logger.Info().
				Str("room_type", rt.Code).
				Int64("room_type_id", rt.ID).
				Int64("nights_created", created).
				Int("seasonal_prices", len(seed.SeasonalPrices)).
				Msg("room type seeded")
		}
	}
	return nil
}

func ensureRoomType(ctx context.Context, store domain.CatalogRepository, seed config.RoomTypeSeed) (*models.RoomType, error) {
	rt, err := store.GetRoomTypeByCode(ctx, seed.Code)
	if err == nil {
		return rt, nil
	}
	if !errors.Is(err, domain.ErrRoomTypeNotFound) {
		return nil, err
	}

	price, err := decimal.NewFromString(strings.TrimSpace(seed.BasePrice))
	if err != nil {
		return nil, fmt.Errorf("room type %s: invalid base_price %q", seed.Code, seed.BasePrice)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("room type %s: %w", seed.Code, domain.ErrInvalidPrice)
	}
	maxAdults := seed.MaxAdults
	if maxAdults <= 0 {
		maxAdults = 2
	}

	rt = &models.RoomType{
		Code:       seed.Code,
		Name:       seed.Name,
		BasePrice:  price.Round(2),
		TotalRooms: seed.TotalRooms,
		MaxAdults:  maxAdults,
		IsActive:   true,
	}
	if err := store.CreateRoomType(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func applySeasonalPrice(ctx context.Context, ledger *InventoryLedger, roomTypeID int64, from, to, price string) error {
	start, err := models.ParseDate(from)
	if err != nil {
		return err
	}
	end, err := models.ParseDate(to)
	if err != nil {
		return err
	}
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return fmt.Errorf("invalid price %q", price)
	}
	_, err = ledger.SetSeasonalPrice(ctx, roomTypeID, start, end, &p)
	return err
}
