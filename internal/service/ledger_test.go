package service

import (
	"context"
	"testing"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAvailabilityLocked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rt := h.roomType(t, "STD", 3, 100)

	require.NoError(t, h.ledger.Decrease(ctx, rt.ID, day(11), day(12), 2))

	minAvail, err := h.ledger.CheckAvailabilityLocked(ctx, rt.ID, day(10), day(13), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, minAvail)

	_, err = h.ledger.CheckAvailabilityLocked(ctx, rt.ID, day(10), day(13), 2)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	_, err = h.ledger.BlockDates(ctx, rt.ID, day(20), day(21))
	require.NoError(t, err)
	_, err = h.ledger.CheckAvailabilityLocked(ctx, rt.ID, day(19), day(22), 1)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	_, err = h.ledger.UnblockDates(ctx, rt.ID, day(20), day(21))
	require.NoError(t, err)
	_, err = h.ledger.CheckAvailabilityLocked(ctx, rt.ID, day(19), day(22), 1)
	assert.NoError(t, err)

	// August is not initialized
	_, err = h.ledger.CheckAvailabilityLocked(ctx, rt.ID, day(30), day(30).AddDate(0, 0, 3), 1)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	_, err = h.ledger.CheckAvailabilityLocked(ctx, rt.ID, day(12), day(12), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestDecreaseIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rt := h.roomType(t, "STD", 2, 100)

	require.NoError(t, h.ledger.Decrease(ctx, rt.ID, day(2), day(3), 2))

	err := h.ledger.Decrease(ctx, rt.ID, day(1), day(4), 1)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, []int{2, 0, 2}, h.available(t, rt.ID, day(1), day(4)))

	assert.ErrorIs(t, h.ledger.Decrease(ctx, rt.ID, day(1), day(4), 0), domain.ErrInvalidQuantity)
}

func TestIncreaseClampsAtTotal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rt := h.roomType(t, "STD", 3, 100)

	require.NoError(t, h.ledger.Decrease(ctx, rt.ID, day(1), day(3), 1))
	require.NoError(t, h.ledger.Increase(ctx, rt.ID, day(1), day(4), 2))
	assert.Equal(t, []int{3, 3, 3}, h.available(t, rt.ID, day(1), day(4)))
}

func TestInitializeRangeKeepsExistingNights(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rt := h.roomType(t, "STD", 3, 100)
	require.NoError(t, h.ledger.Decrease(ctx, rt.ID, day(31), day(31).AddDate(0, 0, 1), 1))

	price := decimal.NewFromInt(180)
	n, err := h.ledger.InitializeRange(ctx, rt.ID, day(30), day(31).AddDate(0, 0, 3), 3, &price)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	days, err := h.ledger.GetRange(ctx, rt.ID, day(31), day(31).AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 2, days[0].AvailableRooms)
	assert.False(t, days[0].Price.Valid)
	assert.True(t, days[1].Price.Decimal.Equal(price))

	negative := decimal.NewFromInt(-1)
	_, err = h.ledger.InitializeRange(ctx, rt.ID, day(1), day(2), 3, &negative)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = h.ledger.InitializeRange(ctx, rt.ID, day(1), day(2), -1, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)
}

func TestResizeCapacity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rt := h.roomType(t, "STD", 5, 100)
	require.NoError(t, h.ledger.Decrease(ctx, rt.ID, day(1), day(2), 2))

	_, err := h.ledger.ResizeCapacity(ctx, rt.ID, day(1), day(2), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, h.available(t, rt.ID, day(1), day(2)))

	_, err = h.ledger.ResizeCapacity(ctx, rt.ID, day(1), day(2), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, h.available(t, rt.ID, day(1), day(2)))

	_, err = h.ledger.ResizeCapacity(ctx, rt.ID, day(1), day(2), 6)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, h.available(t, rt.ID, day(1), day(2)))
}

func TestAvailabilityView(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rt := h.roomType(t, "STD", 4, 100)

	seasonal := decimal.NewFromInt(140)
	_, err := h.ledger.SetSeasonalPrice(ctx, rt.ID, day(11), day(12), &seasonal)
	require.NoError(t, err)
	require.NoError(t, h.ledger.Decrease(ctx, rt.ID, day(10), day(12), 1))
	_, err = h.holds.CreateHolds(ctx, CreateHoldsInput{
		Selections: []models.RoomSelection{{RoomTypeID: rt.ID, Quantity: 2}},
		CheckIn:    day(11),
		CheckOut:   day(13),
	})
	require.NoError(t, err)

	view, err := h.ledger.Availability(ctx, rt.ID, day(10), day(13))
	require.NoError(t, err)
	require.Len(t, view, 3)

	assert.Equal(t, 3, view[0].AvailableRooms)
	assert.Equal(t, 0, view[0].HeldRooms)
	assert.Equal(t, 3, view[0].Effective)
	assert.True(t, view[0].Price.Equal(decimal.NewFromInt(100)))

	assert.Equal(t, 2, view[1].HeldRooms)
	assert.Equal(t, 1, view[1].Effective)
	assert.True(t, view[1].Price.Equal(seasonal))

	assert.Equal(t, 4, view[2].AvailableRooms)
	assert.Equal(t, 2, view[2].Effective)

	_, err = h.ledger.SetSeasonalPrice(ctx, rt.ID, day(11), day(12), nil)
	require.NoError(t, err)
	view, err = h.ledger.Availability(ctx, rt.ID, day(11), day(12))
	require.NoError(t, err)
	assert.True(t, view[0].Price.Equal(decimal.NewFromInt(100)))
}
