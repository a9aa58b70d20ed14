package postgres

import (
	"context"
	"fmt"
	"time"

	"hotelbooking/internal/models"

	"github.com/jackc/pgx/v5"
)

const holdColumns = `id, token, session_id, room_type_id, quantity, check_in, check_out, expires_at, created_at`

func (s *Store) InsertHold(ctx context.Context, hold *models.Hold) error {
	const stmt = `
INSERT INTO room_holds (token, session_id, room_type_id, quantity, check_in, check_out, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	err := s.queryRow(ctx, stmt,
		hold.Token,
		hold.SessionID,
		hold.RoomTypeID,
		hold.Quantity,
		models.DateOf(hold.CheckIn),
		models.DateOf(hold.CheckOut),
		hold.ExpiresAt,
		hold.CreatedAt,
	).Scan(&hold.ID)
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

func (s *Store) LockHoldsByToken(ctx context.Context, token string) ([]*models.Hold, error) {
	rows, err := s.query(ctx, `SELECT `+holdColumns+` FROM room_holds WHERE token = $1 ORDER BY room_type_id FOR UPDATE`, token)
	if err != nil {
		return nil, fmt.Errorf("lock holds: %w", err)
	}
	return scanHolds(rows)
}

func (s *Store) GetHoldsByToken(ctx context.Context, token string) ([]*models.Hold, error) {
	rows, err := s.query(ctx, `SELECT `+holdColumns+` FROM room_holds WHERE token = $1 ORDER BY room_type_id`, token)
	if err != nil {
		return nil, fmt.Errorf("get holds: %w", err)
	}
	return scanHolds(rows)
}

func (s *Store) SumActiveHolds(ctx context.Context, roomTypeID int64, from, to, now time.Time, excludeToken string) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM room_holds
WHERE room_type_id = $1 AND check_in < $3 AND check_out > $2 AND expires_at > $4 AND token <> $5`
	var total int
	err := s.queryRow(ctx, query, roomTypeID, models.DateOf(from), models.DateOf(to), now, excludeToken).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum active holds: %w", err)
	}
	return total, nil
}

func (s *Store) ListActiveHolds(ctx context.Context, roomTypeID int64, from, to, now time.Time) ([]*models.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM room_holds
WHERE room_type_id = $1 AND check_in < $3 AND check_out > $2 AND expires_at > $4
ORDER BY id`
	rows, err := s.query(ctx, query, roomTypeID, models.DateOf(from), models.DateOf(to), now)
	if err != nil {
		return nil, fmt.Errorf("list active holds: %w", err)
	}
	return scanHolds(rows)
}

func (s *Store) UpdateHoldExpiry(ctx context.Context, token string, expiresAt, now time.Time) (int64, error) {
	tag, err := s.exec(ctx, `UPDATE room_holds SET expires_at = $2 WHERE token = $1 AND expires_at > $3`, token, expiresAt, now)
	if err != nil {
		return 0, fmt.Errorf("update hold expiry: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteHoldsByToken(ctx context.Context, token string) (int64, error) {
	tag, err := s.exec(ctx, `DELETE FROM room_holds WHERE token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("delete holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteHoldsBySession(ctx context.Context, sessionID string) (int64, error) {
	tag, err := s.exec(ctx, `DELETE FROM room_holds WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredHolds skips rows another transaction has locked; that
// transaction re-checks expiry on its own lines.
func (s *Store) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	const stmt = `
DELETE FROM room_holds WHERE id IN (
	SELECT id FROM room_holds WHERE expires_at <= $1 ORDER BY id FOR UPDATE SKIP LOCKED
)`
	tag, err := s.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanHolds(rows pgx.Rows) ([]*models.Hold, error) {
	defer rows.Close()

	var holds []*models.Hold
	for rows.Next() {
		h := &models.Hold{}
		if err := rows.Scan(&h.ID, &h.Token, &h.SessionID, &h.RoomTypeID, &h.Quantity,
			&h.CheckIn, &h.CheckOut, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		h.CheckIn = models.DateOf(h.CheckIn)
		h.CheckOut = models.DateOf(h.CheckOut)
		h.ExpiresAt = h.ExpiresAt.UTC()
		holds = append(holds, h)
	}
	return holds, rows.Err()
}
