package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/jackc/pgx/v5"
)

const roomTypeColumns = `id, code, name, base_price::text, total_rooms, max_adults, is_active, created_at, updated_at`

func (s *Store) CreateRoomType(ctx context.Context, roomType *models.RoomType) error {
	const stmt = `
INSERT INTO room_types (code, name, base_price, total_rooms, max_adults, is_active)
VALUES ($1, $2, $3::text::numeric, $4, $5, $6)
RETURNING id, created_at, updated_at`
	err := s.queryRow(ctx, stmt,
		roomType.Code,
		roomType.Name,
		moneyArg(roomType.BasePrice),
		roomType.TotalRooms,
		roomType.MaxAdults,
		roomType.IsActive,
	).Scan(&roomType.ID, &roomType.CreatedAt, &roomType.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create room type: %w", err)
	}
	return nil
}

func (s *Store) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	return s.getRoomType(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE id = $1`, id)
}

func (s *Store) GetRoomTypeByCode(ctx context.Context, code string) (*models.RoomType, error) {
	return s.getRoomType(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE code = $1`, code)
}

func (s *Store) getRoomType(ctx context.Context, query string, arg any) (*models.RoomType, error) {
	rt, err := scanRoomType(s.queryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomTypeNotFound
		}
		return nil, fmt.Errorf("get room type: %w", err)
	}
	return rt, nil
}

func (s *Store) ListRoomTypes(ctx context.Context, activeOnly bool) ([]*models.RoomType, error) {
	query := `SELECT ` + roomTypeColumns + ` FROM room_types`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	defer rows.Close()

	var roomTypes []*models.RoomType
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room type: %w", err)
		}
		roomTypes = append(roomTypes, rt)
	}
	return roomTypes, rows.Err()
}

func scanRoomType(row pgx.Row) (*models.RoomType, error) {
	var (
		rt    models.RoomType
		price string
	)
	if err := row.Scan(&rt.ID, &rt.Code, &rt.Name, &price, &rt.TotalRooms, &rt.MaxAdults, &rt.IsActive,
		&rt.CreatedAt, &rt.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if rt.BasePrice, err = parseMoney(price); err != nil {
		return nil, err
	}
	return &rt, nil
}

func (s *Store) CreateCancellationPolicy(ctx context.Context, policy *models.CancellationPolicy) error {
	tiers, err := json.Marshal(policy.Tiers)
	if err != nil {
		return fmt.Errorf("encode policy tiers: %w", err)
	}
	err = s.queryRow(ctx,
		`INSERT INTO cancellation_policies (name, tiers) VALUES ($1, $2::text::jsonb) RETURNING id, created_at`,
		policy.Name, string(tiers),
	).Scan(&policy.ID, &policy.CreatedAt)
	if err != nil {
		return fmt.Errorf("create cancellation policy: %w", err)
	}
	return nil
}

func (s *Store) GetCancellationPolicy(ctx context.Context, id int64) (*models.CancellationPolicy, error) {
	var (
		policy models.CancellationPolicy
		tiers  string
	)
	err := s.queryRow(ctx, `SELECT id, name, tiers::text, created_at FROM cancellation_policies WHERE id = $1`, id).
		Scan(&policy.ID, &policy.Name, &tiers, &policy.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("get cancellation policy: %w", err)
	}
	if err := json.Unmarshal([]byte(tiers), &policy.Tiers); err != nil {
		return nil, fmt.Errorf("decode policy tiers: %w", err)
	}
	return &policy, nil
}
