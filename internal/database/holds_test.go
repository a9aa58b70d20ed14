package database

import (
	"context"
	"testing"
	"time"

	"hotelbooking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertHold(t *testing.T, db *DB, token string, roomTypeID int64, qty int, in, out time.Time, expires time.Time) *models.Hold {
	t.Helper()
	h := &models.Hold{
		Token:      token,
		SessionID:  "sess-" + token,
		RoomTypeID: roomTypeID,
		Quantity:   qty,
		CheckIn:    in,
		CheckOut:   out,
		ExpiresAt:  expires,
		CreatedAt:  expires.Add(-15 * time.Minute),
	}
	require.NoError(t, db.InsertHold(context.Background(), h))
	return h
}

func TestHoldRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	rt := createRoomType(t, db, "STD", 4)
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	h := insertHold(t, db, "tok-a", rt.ID, 2, day(3), day(5), now.Add(10*time.Minute))
	assert.NotZero(t, h.ID)

	holds, err := db.GetHoldsByToken(ctx, "tok-a")
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, day(3), holds[0].CheckIn)
	assert.Equal(t, day(5), holds[0].CheckOut)
	assert.True(t, holds[0].ExpiresAt.Equal(now.Add(10*time.Minute)))
	assert.Equal(t, "sess-tok-a", holds[0].SessionID)

	locked, err := db.LockHoldsByToken(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, locked)
}

func TestSumActiveHolds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	rt := createRoomType(t, db, "STD", 10)
	other := createRoomType(t, db, "DLX", 10)
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	insertHold(t, db, "overlap", rt.ID, 2, day(3), day(5), now.Add(time.Minute))
	insertHold(t, db, "touching", rt.ID, 4, day(5), day(7), now.Add(time.Minute))
	insertHold(t, db, "expired", rt.ID, 3, day(3), day(5), now)
	insertHold(t, db, "mine", rt.ID, 1, day(4), day(5), now.Add(time.Minute))
	insertHold(t, db, "other-type", other.ID, 5, day(3), day(5), now.Add(time.Minute))

	// request nights 4 and 5: "touching" starts on checkout of "overlap" but overlaps night 5
	total, err := db.SumActiveHolds(ctx, rt.ID, day(4), day(6), now, "mine")
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	// nights 3..4 only: checkout is exclusive, "touching" does not count
	total, err = db.SumActiveHolds(ctx, rt.ID, day(3), day(5), now, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	active, err := db.ListActiveHolds(ctx, rt.ID, day(1), day(10), now)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestUpdateHoldExpiryOnlyActive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	rt := createRoomType(t, db, "STD", 10)
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	insertHold(t, db, "live", rt.ID, 1, day(3), day(4), now.Add(time.Minute))
	insertHold(t, db, "live", rt.ID, 1, day(3), day(4), now.Add(time.Minute))
	insertHold(t, db, "dead", rt.ID, 1, day(3), day(4), now.Add(-time.Minute))

	n, err := db.UpdateHoldExpiry(ctx, "live", now.Add(time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.UpdateHoldExpiry(ctx, "dead", now.Add(time.Hour), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteHolds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	rt := createRoomType(t, db, "STD", 10)
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	insertHold(t, db, "a", rt.ID, 1, day(3), day(4), now.Add(time.Minute))
	insertHold(t, db, "b", rt.ID, 1, day(3), day(4), now)
	insertHold(t, db, "c", rt.ID, 1, day(3), day(4), now.Add(-time.Hour))

	n, err := db.DeleteExpiredHolds(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.DeleteHoldsBySession(ctx, "sess-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = db.DeleteHoldsByToken(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
}
