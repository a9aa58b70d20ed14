package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"
)

const roomTypeColumns = `id, code, name, base_price, total_rooms, max_adults, is_active, created_at, updated_at`

func (db *DB) CreateRoomType(ctx context.Context, roomType *models.RoomType) error {
	query := `INSERT INTO room_types (code, name, base_price, total_rooms, max_adults, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.conn(ctx).ExecContext(ctx, query,
		roomType.Code,
		roomType.Name,
		roomType.BasePrice,
		roomType.TotalRooms,
		roomType.MaxAdults,
		roomType.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create room type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	roomType.ID = id
	roomType.CreatedAt = now
	roomType.UpdatedAt = now
	return nil
}

func (db *DB) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	query := `SELECT ` + roomTypeColumns + ` FROM room_types WHERE id = ?`
	return db.getRoomType(ctx, query, id)
}

func (db *DB) GetRoomTypeByCode(ctx context.Context, code string) (*models.RoomType, error) {
	query := `SELECT ` + roomTypeColumns + ` FROM room_types WHERE code = ?`
	return db.getRoomType(ctx, query, code)
}

func (db *DB) getRoomType(ctx context.Context, query string, arg any) (*models.RoomType, error) {
	var rt models.RoomType
	err := db.conn(ctx).QueryRowContext(ctx, query, arg).Scan(
		&rt.ID, &rt.Code, &rt.Name, &rt.BasePrice, &rt.TotalRooms, &rt.MaxAdults, &rt.IsActive,
		&rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomTypeNotFound
		}
		return nil, fmt.Errorf("failed to get room type: %w", err)
	}
	return &rt, nil
}

func (db *DB) ListRoomTypes(ctx context.Context, activeOnly bool) ([]*models.RoomType, error) {
	query := `SELECT ` + roomTypeColumns + ` FROM room_types`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id ASC`

	rows, err := db.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list room types: %w", err)
	}
	defer rows.Close()

	var roomTypes []*models.RoomType
	for rows.Next() {
		rt := &models.RoomType{}
		if err := rows.Scan(&rt.ID, &rt.Code, &rt.Name, &rt.BasePrice, &rt.TotalRooms, &rt.MaxAdults,
			&rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room type: %w", err)
		}
		roomTypes = append(roomTypes, rt)
	}
	return roomTypes, rows.Err()
}

func (db *DB) CreateCancellationPolicy(ctx context.Context, policy *models.CancellationPolicy) error {
	tiers, err := json.Marshal(policy.Tiers)
	if err != nil {
		return fmt.Errorf("failed to encode policy tiers: %w", err)
	}

	now := time.Now().UTC()
	result, err := db.conn(ctx).ExecContext(ctx,
		`INSERT INTO cancellation_policies (name, tiers, created_at) VALUES (?, ?, ?)`,
		policy.Name, string(tiers), now)
	if err != nil {
		return fmt.Errorf("failed to create cancellation policy: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	policy.ID = id
	policy.CreatedAt = now
	return nil
}

func (db *DB) GetCancellationPolicy(ctx context.Context, id int64) (*models.CancellationPolicy, error) {
	var (
		policy models.CancellationPolicy
		tiers  string
	)
	err := db.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, tiers, created_at FROM cancellation_policies WHERE id = ?`, id).
		Scan(&policy.ID, &policy.Name, &tiers, &policy.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation policy: %w", err)
	}
	if err := json.Unmarshal([]byte(tiers), &policy.Tiers); err != nil {
		return nil, fmt.Errorf("failed to decode policy tiers: %w", err)
	}
	return &policy, nil
}
