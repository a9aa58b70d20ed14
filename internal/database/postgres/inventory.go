package postgres

import (
	"context"
	"fmt"
	"time"

	"hotelbooking/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const inventorySelect = `SELECT room_type_id, date, total_rooms, available_rooms, price::text, is_available, updated_at
FROM room_inventory
WHERE room_type_id = $1 AND date >= $2 AND date < $3
ORDER BY date`

func (s *Store) LockInventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) ([]*models.InventoryDay, error) {
	rows, err := s.query(ctx, inventorySelect+` FOR UPDATE`, roomTypeID, models.DateOf(from), models.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("lock inventory range: %w", err)
	}
	return scanInventory(rows)
}

func (s *Store) GetInventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) ([]*models.InventoryDay, error) {
	rows, err := s.query(ctx, inventorySelect, roomTypeID, models.DateOf(from), models.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("get inventory range: %w", err)
	}
	return scanInventory(rows)
}

func (s *Store) DecreaseAvailable(ctx context.Context, roomTypeID int64, from, to time.Time, qty int) (int64, error) {
	const stmt = `
UPDATE room_inventory SET available_rooms = available_rooms - $4, updated_at = NOW()
WHERE room_type_id = $1 AND date >= $2 AND date < $3 AND available_rooms >= $4`
	tag, err := s.exec(ctx, stmt, roomTypeID, models.DateOf(from), models.DateOf(to), qty)
	if err != nil {
		return 0, fmt.Errorf("decrease availability: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) IncreaseAvailable(ctx context.Context, roomTypeID int64, from, to time.Time, qty int) (int64, error) {
	const stmt = `
UPDATE room_inventory SET available_rooms = LEAST(total_rooms, available_rooms + $4), updated_at = NOW()
WHERE room_type_id = $1 AND date >= $2 AND date < $3`
	tag, err := s.exec(ctx, stmt, roomTypeID, models.DateOf(from), models.DateOf(to), qty)
	if err != nil {
		return 0, fmt.Errorf("increase availability: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) InsertMissingInventory(
	ctx context.Context,
	roomTypeID int64,
	from, to time.Time,
	totalRooms int,
	price decimal.NullDecimal,
) (int64, error) {
	const stmt = `
INSERT INTO room_inventory (room_type_id, date, total_rooms, available_rooms, price, is_available, updated_at)
SELECT $1, d::date, $4, $4, $5::text::numeric, TRUE, NOW()
FROM generate_series($2::date, $3::date - 1, INTERVAL '1 day') AS d
ON CONFLICT (room_type_id, date) DO NOTHING`
	tag, err := s.exec(ctx, stmt, roomTypeID, models.DateOf(from), models.DateOf(to), totalRooms, nullMoneyArg(price))
	if err != nil {
		return 0, fmt.Errorf("initialize inventory: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) SetInventoryAvailability(ctx context.Context, roomTypeID int64, from, to time.Time, available bool) (int64, error) {
	const stmt = `
UPDATE room_inventory SET is_available = $4, updated_at = NOW()
WHERE room_type_id = $1 AND date >= $2 AND date < $3`
	tag, err := s.exec(ctx, stmt, roomTypeID, models.DateOf(from), models.DateOf(to), available)
	if err != nil {
		return 0, fmt.Errorf("set availability: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) SetInventoryPrice(ctx context.Context, roomTypeID int64, from, to time.Time, price decimal.NullDecimal) (int64, error) {
	const stmt = `
UPDATE room_inventory SET price = $4::text::numeric, updated_at = NOW()
WHERE room_type_id = $1 AND date >= $2 AND date < $3`
	tag, err := s.exec(ctx, stmt, roomTypeID, models.DateOf(from), models.DateOf(to), nullMoneyArg(price))
	if err != nil {
		return 0, fmt.Errorf("set price: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ResizeInventory(ctx context.Context, roomTypeID int64, from, to time.Time, totalRooms int) (int64, error) {
	const stmt = `
UPDATE room_inventory
SET available_rooms = GREATEST(0, LEAST($4, available_rooms + ($4 - total_rooms))),
    total_rooms = $4, updated_at = NOW()
WHERE room_type_id = $1 AND date >= $2 AND date < $3`
	tag, err := s.exec(ctx, stmt, roomTypeID, models.DateOf(from), models.DateOf(to), totalRooms)
	if err != nil {
		return 0, fmt.Errorf("resize inventory: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanInventory(rows pgx.Rows) ([]*models.InventoryDay, error) {
	defer rows.Close()

	var days []*models.InventoryDay
	for rows.Next() {
		day := &models.InventoryDay{}
		var price *string
		if err := rows.Scan(&day.RoomTypeID, &day.Date, &day.TotalRooms, &day.AvailableRooms,
			&price, &day.IsAvailable, &day.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		var err error
		if day.Price, err = parseNullMoney(price); err != nil {
			return nil, err
		}
		day.Date = models.DateOf(day.Date)
		days = append(days, day)
	}
	return days, rows.Err()
}
