package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hotelbooking/internal/clock"
	"hotelbooking/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createRoomType(t, db, "STD", 3)

	storagePath := filepath.Join(t.TempDir(), "backups")
	clk := clock.NewManual(time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC))
	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 7,
	}, clk, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hotel_20250610_030000.db", filepath.Base(path))

		snapshot, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		defer snapshot.Close()
		var count int
		require.NoError(t, snapshot.QueryRow(`SELECT COUNT(*) FROM room_types`).Scan(&count))
		assert.Equal(t, 1, count)

		_, err = s.PerformBackup(ctx)
		assert.Error(t, err)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		old := filepath.Join(storagePath, "hotel_20250501_030000.db")
		require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
		foreign := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))

		assert.Equal(t, 1, s.CleanupOldBackups())

		files, err := os.ReadDir(storagePath)
		require.NoError(t, err)
		assert.Len(t, files, 2)
		_, err = os.Stat(old)
		assert.True(t, os.IsNotExist(err))
	})
}
