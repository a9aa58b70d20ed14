package database

import (
	"context"
	"testing"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomTypeCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	std := createRoomType(t, db, "STD", 10)
	dlx := createRoomType(t, db, "DLX", 2)
	assert.NotZero(t, std.ID)

	got, err := db.GetRoomType(ctx, dlx.ID)
	require.NoError(t, err)
	assert.Equal(t, "DLX", got.Code)
	assert.Equal(t, 2, got.TotalRooms)
	assert.True(t, got.IsActive)

	_, err = db.GetRoomType(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrRoomTypeNotFound)
	_, err = db.GetRoomTypeByCode(ctx, "PENT")
	assert.ErrorIs(t, err, domain.ErrRoomTypeNotFound)

	_, err = db.ExecContext(ctx, `UPDATE room_types SET is_active = 0 WHERE id = ?`, dlx.ID)
	require.NoError(t, err)

	all, err := db.ListRoomTypes(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := db.ListRoomTypes(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "STD", active[0].Code)
}

func TestCancellationPolicyRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetCancellationPolicy(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrPolicyNotFound)

	policy := &models.CancellationPolicy{Name: "moderate", Tiers: []models.PolicyTier{
		{HoursBeforeCheckIn: 72, RefundPercentage: decimal.NewFromInt(100)},
		{HoursBeforeCheckIn: 24, RefundPercentage: decimal.RequireFromString("50.5")},
	}}
	require.NoError(t, db.CreateCancellationPolicy(ctx, policy))

	got, err := db.GetCancellationPolicy(ctx, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, "moderate", got.Name)
	require.Len(t, got.Tiers, 2)
	assert.Equal(t, 24, got.Tiers[1].HoursBeforeCheckIn)
	assert.Equal(t, "50.5", got.Tiers[1].RefundPercentage.String())
}
