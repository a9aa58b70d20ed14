package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotelbooking/internal/models"
)

const holdColumns = `id, token, session_id, room_type_id, quantity, check_in, check_out, expires_at, created_at`

func (db *DB) InsertHold(ctx context.Context, hold *models.Hold) error {
	query := `INSERT INTO room_holds (
                token, session_id, room_type_id, quantity, check_in, check_out, expires_at, created_at
              ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.conn(ctx).ExecContext(ctx, query,
		hold.Token,
		hold.SessionID,
		hold.RoomTypeID,
		hold.Quantity,
		dateKey(hold.CheckIn),
		dateKey(hold.CheckOut),
		hold.ExpiresAt.UnixMilli(),
		hold.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert hold: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	hold.ID = id
	return nil
}

// LockHoldsByToken reads the lines inside the caller's write transaction.
func (db *DB) LockHoldsByToken(ctx context.Context, token string) ([]*models.Hold, error) {
	return db.GetHoldsByToken(ctx, token)
}

func (db *DB) GetHoldsByToken(ctx context.Context, token string) ([]*models.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM room_holds WHERE token = ? ORDER BY room_type_id ASC`
	rows, err := db.conn(ctx).QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get holds by token: %w", err)
	}
	return scanHolds(rows)
}

func (db *DB) SumActiveHolds(ctx context.Context, roomTypeID int64, from, to, now time.Time, excludeToken string) (int, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM room_holds
              WHERE room_type_id = ? AND check_in < ? AND check_out > ? AND expires_at > ? AND token <> ?`
	var total int
	err := db.conn(ctx).QueryRowContext(ctx, query, roomTypeID, dateKey(to), dateKey(from), now.UnixMilli(), excludeToken).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum active holds: %w", err)
	}
	return total, nil
}

func (db *DB) ListActiveHolds(ctx context.Context, roomTypeID int64, from, to, now time.Time) ([]*models.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM room_holds
              WHERE room_type_id = ? AND check_in < ? AND check_out > ? AND expires_at > ?
              ORDER BY id ASC`
	rows, err := db.conn(ctx).QueryContext(ctx, query, roomTypeID, dateKey(to), dateKey(from), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list active holds: %w", err)
	}
	return scanHolds(rows)
}

// UpdateHoldExpiry moves expires_at for the token's lines that are still active at now.
func (db *DB) UpdateHoldExpiry(ctx context.Context, token string, expiresAt, now time.Time) (int64, error) {
	query := `UPDATE room_holds SET expires_at = ? WHERE token = ? AND expires_at > ?`
	result, err := db.conn(ctx).ExecContext(ctx, query, expiresAt.UnixMilli(), token, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to update hold expiry: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) DeleteHoldsByToken(ctx context.Context, token string) (int64, error) {
	result, err := db.conn(ctx).ExecContext(ctx, `DELETE FROM room_holds WHERE token = ?`, token)
	if err != nil {
		return 0, fmt.Errorf("failed to delete holds: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) DeleteHoldsBySession(ctx context.Context, sessionID string) (int64, error) {
	result, err := db.conn(ctx).ExecContext(ctx, `DELETE FROM room_holds WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session holds: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.conn(ctx).ExecContext(ctx, `DELETE FROM room_holds WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired holds: %w", err)
	}
	return result.RowsAffected()
}

func scanHolds(rows *sql.Rows) ([]*models.Hold, error) {
	defer rows.Close()

	var holds []*models.Hold
	for rows.Next() {
		h := &models.Hold{}
		var checkIn, checkOut string
		var expiresAt int64
		if err := rows.Scan(&h.ID, &h.Token, &h.SessionID, &h.RoomTypeID, &h.Quantity,
			&checkIn, &checkOut, &expiresAt, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hold: %w", err)
		}
		var err error
		if h.CheckIn, err = models.ParseDate(checkIn); err != nil {
			return nil, err
		}
		if h.CheckOut, err = models.ParseDate(checkOut); err != nil {
			return nil, err
		}
		h.ExpiresAt = time.UnixMilli(expiresAt).UTC()
		holds = append(holds, h)
	}
	return holds, rows.Err()
}
