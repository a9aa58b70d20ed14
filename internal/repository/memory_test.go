package repository

import (
	"context"
	"testing"
	"time"

	"hotelbooking/internal/clock"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateRepository(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	repo := NewMemoryStateRepository(time.Hour, clk)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &domain.CheckoutState{
			SessionID:  "s-123",
			HoldToken:  "tok",
			CheckIn:    "2025-07-10",
			CheckOut:   "2025-07-13",
			Selections: []models.RoomSelection{{RoomTypeID: 1, Quantity: 2}},
		}
		require.NoError(t, repo.SetState(ctx, state))

		got, err := repo.GetState(ctx, "s-123")
		require.NoError(t, err)
		assert.Equal(t, state, got)
		assert.Equal(t, clk.Now(), got.UpdatedAt)
	})

	t.Run("StateExpires", func(t *testing.T) {
		require.NoError(t, repo.SetState(ctx, &domain.CheckoutState{SessionID: "s-ttl"}))
		clk.Advance(time.Hour)
		got, err := repo.GetState(ctx, "s-ttl")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("StateEndsWithHold", func(t *testing.T) {
		state := &domain.CheckoutState{SessionID: "s-hold", HoldToken: "tok", HoldExpiresAt: clk.Now().Add(15 * time.Minute)}
		require.NoError(t, repo.SetState(ctx, state))

		clk.Advance(14 * time.Minute)
		got, err := repo.GetState(ctx, "s-hold")
		require.NoError(t, err)
		require.NotNil(t, got)

		clk.Advance(time.Minute)
		got, err = repo.GetState(ctx, "s-hold")
		require.NoError(t, err)
		assert.Nil(t, got)

		// saving state for an expired hold drops it
		require.NoError(t, repo.SetState(ctx, &domain.CheckoutState{SessionID: "s-hold", HoldExpiresAt: clk.Now()}))
		got, _ = repo.GetState(ctx, "s-hold")
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		require.NoError(t, repo.SetState(ctx, &domain.CheckoutState{SessionID: "s-123"}))
		require.NoError(t, repo.ClearState(ctx, "s-123"))
		got, _ := repo.GetState(ctx, "s-123")
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		allowed, _ := repo.CheckRateLimit(ctx, "s-456", 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, "s-456", 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, "s-456", 2, time.Second)
		assert.False(t, allowed)

		// other sessions have their own window
		allowed, _ = repo.CheckRateLimit(ctx, "s-789", 2, time.Second)
		assert.True(t, allowed)

		clk.Advance(time.Second)
		allowed, _ = repo.CheckRateLimit(ctx, "s-456", 2, time.Second)
		assert.True(t, allowed)
	})
}
