package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hotelbooking/internal/clock"
	"hotelbooking/internal/database"
	"hotelbooking/internal/events"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type harness struct {
	db       *database.DB
	clock    *clock.Manual
	bus      *events.EventBus
	ledger   *InventoryLedger
	pricing  *PricingEngine
	holds    *HoldManager
	bookings *BookingStateMachine

	mu        sync.Mutex
	published []string
}

func newHarness(t *testing.T, opts ...BookingOption) *harness {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "hotel.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		db:    db,
		clock: clock.NewManual(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		bus:   events.NewEventBus(),
	}
	for _, eventType := range []string{
		events.EventHoldCreated, events.EventHoldReleased, events.EventHoldConverted,
		events.EventBookingCreated, events.EventBookingConfirmed, events.EventBookingCancelled,
		events.EventBookingNoShow, events.EventRefundCompleted, events.EventRefundFailed,
		events.EventRefundRetry,
	} {
		h.bus.Subscribe(eventType, func(e *events.Event) error {
			h.mu.Lock()
			h.published = append(h.published, e.Type)
			h.mu.Unlock()
			return nil
		})
	}

	h.ledger = NewInventoryLedger(db, h.clock, &logger)
	h.pricing = NewPricingEngine(db, h.clock, &logger, WithDefaultTaxRate(decimal.RequireFromString("0.15")))
	h.holds = NewHoldManager(db, h.ledger, h.pricing, h.bus, h.clock, &logger)
	h.bookings = NewBookingStateMachine(db, h.ledger, h.holds, h.pricing, h.bus, h.clock, &logger, opts...)
	return h
}

// roomType creates an active room type with inventory for all of July 2025.
func (h *harness) roomType(t *testing.T, code string, total int, basePrice int64) *models.RoomType {
	t.Helper()
	rt := &models.RoomType{
		Code:       code,
		Name:       code + " room",
		BasePrice:  decimal.NewFromInt(basePrice),
		TotalRooms: total,
		MaxAdults:  2,
		IsActive:   true,
	}
	require.NoError(t, h.db.CreateRoomType(context.Background(), rt))
	_, err := h.ledger.InitializeRange(context.Background(), rt.ID, day(1), time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), total, nil)
	require.NoError(t, err)
	return rt
}

func (h *harness) available(t *testing.T, roomTypeID int64, from, to time.Time) []int {
	t.Helper()
	days, err := h.ledger.GetRange(context.Background(), roomTypeID, from, to)
	require.NoError(t, err)
	out := make([]int, 0, len(days))
	for _, d := range days {
		out = append(out, d.AvailableRooms)
	}
	return out
}

func (h *harness) events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.published...)
}

func day(d int) time.Time {
	return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
}

func ttl(d time.Duration) *time.Duration {
	return &d
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
