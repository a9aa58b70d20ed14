package service

import (
	"context"
	"testing"
	"time"

	"hotelbooking/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRoomTypes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seed := config.RoomTypeSeed{Code: "STE", Name: "Suite", BasePrice: "320.00", TotalRooms: 2}
	seed.SeasonalPrices = append(seed.SeasonalPrices, struct {
		From  string `yaml:"from"`
		To    string `yaml:"to"`
		Price string `yaml:"price"`
	}{From: "2025-07-10", To: "2025-07-12", Price: "400"})

	require.NoError(t, SeedRoomTypes(ctx, h.db, h.ledger, []config.RoomTypeSeed{seed}, day(1), 31, nil))

	rt, err := h.db.GetRoomTypeByCode(ctx, "STE")
	require.NoError(t, err)
	assert.Equal(t, 2, rt.MaxAdults)
	assert.Equal(t, []int{2, 2}, h.available(t, rt.ID, day(30), day(31).AddDate(0, 0, 1)))

	view, err := h.ledger.Availability(ctx, rt.ID, day(9), day(12))
	require.NoError(t, err)
	assert.Equal(t, "320.00", view[0].Price.StringFixed(2))
	assert.Equal(t, "400.00", view[1].Price.StringFixed(2))

	// a second run keeps bookings already taken out of the ledger
	require.NoError(t, h.ledger.Decrease(ctx, rt.ID, day(10), day(11), 1))
	require.NoError(t, SeedRoomTypes(ctx, h.db, h.ledger, []config.RoomTypeSeed{seed}, day(1), 31, nil))
	assert.Equal(t, []int{1}, h.available(t, rt.ID, day(10), day(11)))

	bad := config.RoomTypeSeed{Code: "BAD", Name: "Bad", BasePrice: "cheap"}
	assert.Error(t, SeedRoomTypes(ctx, h.db, h.ledger, []config.RoomTypeSeed{bad}, time.Now(), 1, nil))
}
