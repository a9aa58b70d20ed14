package database

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "hotel.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createRoomType(t *testing.T, db *DB, code string, total int) *models.RoomType {
	t.Helper()
	rt := &models.RoomType{
		Code:       code,
		Name:       code + " room",
		BasePrice:  decimal.NewFromInt(100),
		TotalRooms: total,
		MaxAdults:  2,
		IsActive:   true,
	}
	require.NoError(t, db.CreateRoomType(context.Background(), rt))
	return rt
}

func day(d int) time.Time {
	return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestNewDB_ReopenKeepsSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	createRoomType(t, db, "STD", 1)
	require.NoError(t, db.Close())

	db, err = NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	rt, err := db.GetRoomTypeByCode(context.Background(), "STD")
	require.NoError(t, err)
	assert.Equal(t, "100", rt.BasePrice.String())
}

func TestWithinTx(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	rt := createRoomType(t, db, "STD", 2)

	t.Run("RollbackOnError", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithinTx(ctx, func(txCtx context.Context) error {
			_, err := db.InsertMissingInventory(txCtx, rt.ID, day(1), day(3), 2, decimal.NullDecimal{})
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		days, err := db.GetInventoryRange(ctx, rt.ID, day(1), day(3))
		require.NoError(t, err)
		assert.Empty(t, days)
	})

	t.Run("NestedJoinsOuter", func(t *testing.T) {
		err := db.WithinTx(ctx, func(txCtx context.Context) error {
			return db.WithinTx(txCtx, func(inner context.Context) error {
				assert.Same(t, txFromContext(txCtx), txFromContext(inner))
				_, err := db.InsertMissingInventory(inner, rt.ID, day(1), day(3), 2, decimal.NullDecimal{})
				return err
			})
		})
		require.NoError(t, err)

		days, err := db.GetInventoryRange(ctx, rt.ID, day(1), day(3))
		require.NoError(t, err)
		assert.Len(t, days, 2)
	})
}

func TestDB_ClosedErrors(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "closed.db"), &logger)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ctx := context.Background()
	_, err = db.GetInventoryRange(ctx, 1, day(1), day(2))
	assert.Error(t, err)
	_, err = db.SumActiveHolds(ctx, 1, day(1), day(2), time.Now(), "")
	assert.Error(t, err)
	assert.Error(t, db.CreateBooking(ctx, &models.Booking{Code: "X"}))
	assert.Error(t, db.WithinTx(ctx, func(context.Context) error { return nil }))
}

func TestNewDB_InvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	logger := zerolog.Nop()
	_, err := NewDB(filepath.Join(file, "sub", "db.sqlite"), &logger)
	assert.Error(t, err)
}
