package database

import (
	"context"
	"fmt"
	"time"

	"hotelbooking/internal/models"

	"github.com/shopspring/decimal"
)

const inventoryColumns = `room_type_id, date, total_rooms, available_rooms, price, is_available, updated_at`

// LockInventoryRange reads the range inside the caller's transaction. The
// transaction already owns the database write lock, which covers these rows.
func (db *DB) LockInventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) ([]*models.InventoryDay, error) {
	return db.GetInventoryRange(ctx, roomTypeID, from, to)
}

func (db *DB) GetInventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) ([]*models.InventoryDay, error) {
	query := `SELECT ` + inventoryColumns + ` FROM room_inventory
              WHERE room_type_id = ? AND date >= ? AND date < ?
              ORDER BY date ASC`
	rows, err := db.conn(ctx).QueryContext(ctx, query, roomTypeID, dateKey(from), dateKey(to))
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory range: %w", err)
	}
	defer rows.Close()

	var days []*models.InventoryDay
	for rows.Next() {
		day := &models.InventoryDay{}
		var dateStr string
		if err := rows.Scan(&day.RoomTypeID, &dateStr, &day.TotalRooms, &day.AvailableRooms,
			&day.Price, &day.IsAvailable, &day.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		if day.Date, err = models.ParseDate(dateStr); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (db *DB) DecreaseAvailable(ctx context.Context, roomTypeID int64, from, to time.Time, qty int) (int64, error) {
	query := `UPDATE room_inventory
              SET available_rooms = available_rooms - ?, updated_at = ?
              WHERE room_type_id = ? AND date >= ? AND date < ? AND available_rooms >= ?`
	result, err := db.conn(ctx).ExecContext(ctx, query, qty, time.Now().UTC(), roomTypeID, dateKey(from), dateKey(to), qty)
	if err != nil {
		return 0, fmt.Errorf("failed to decrease availability: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) IncreaseAvailable(ctx context.Context, roomTypeID int64, from, to time.Time, qty int) (int64, error) {
	query := `UPDATE room_inventory
              SET available_rooms = MIN(total_rooms, available_rooms + ?), updated_at = ?
              WHERE room_type_id = ? AND date >= ? AND date < ?`
	result, err := db.conn(ctx).ExecContext(ctx, query, qty, time.Now().UTC(), roomTypeID, dateKey(from), dateKey(to))
	if err != nil {
		return 0, fmt.Errorf("failed to increase availability: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) InsertMissingInventory(
	ctx context.Context,
	roomTypeID int64,
	from, to time.Time,
	totalRooms int,
	price decimal.NullDecimal,
) (int64, error) {
	query := `INSERT OR IGNORE INTO room_inventory (` + inventoryColumns + `)
              VALUES (?, ?, ?, ?, ?, 1, ?)`
	now := time.Now().UTC()
	var inserted int64
	for _, night := range models.EachNight(from, to) {
		result, err := db.conn(ctx).ExecContext(ctx, query, roomTypeID, dateKey(night), totalRooms, totalRooms, price, now)
		if err != nil {
			return inserted, fmt.Errorf("failed to initialize inventory for %s: %w", dateKey(night), err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (db *DB) SetInventoryAvailability(ctx context.Context, roomTypeID int64, from, to time.Time, available bool) (int64, error) {
	query := `UPDATE room_inventory SET is_available = ?, updated_at = ?
              WHERE room_type_id = ? AND date >= ? AND date < ?`
	result, err := db.conn(ctx).ExecContext(ctx, query, available, time.Now().UTC(), roomTypeID, dateKey(from), dateKey(to))
	if err != nil {
		return 0, fmt.Errorf("failed to set availability: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) SetInventoryPrice(ctx context.Context, roomTypeID int64, from, to time.Time, price decimal.NullDecimal) (int64, error) {
	query := `UPDATE room_inventory SET price = ?, updated_at = ?
              WHERE room_type_id = ? AND date >= ? AND date < ?`
	result, err := db.conn(ctx).ExecContext(ctx, query, price, time.Now().UTC(), roomTypeID, dateKey(from), dateKey(to))
	if err != nil {
		return 0, fmt.Errorf("failed to set price: %w", err)
	}
	return result.RowsAffected()
}

// ResizeInventory shifts available_rooms by the capacity delta, clamped to [0, totalRooms].
func (db *DB) ResizeInventory(ctx context.Context, roomTypeID int64, from, to time.Time, totalRooms int) (int64, error) {
	query := `UPDATE room_inventory
              SET available_rooms = MAX(0, MIN(?, available_rooms + (? - total_rooms))),
                  total_rooms = ?, updated_at = ?
              WHERE room_type_id = ? AND date >= ? AND date < ?`
	result, err := db.conn(ctx).ExecContext(ctx, query, totalRooms, totalRooms, totalRooms, time.Now().UTC(),
		roomTypeID, dateKey(from), dateKey(to))
	if err != nil {
		return 0, fmt.Errorf("failed to resize inventory: %w", err)
	}
	return result.RowsAffected()
}

func dateKey(t time.Time) string {
	return models.DateOf(t).Format(models.DateLayout)
}
