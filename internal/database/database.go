package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hotelbooking/internal/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is the SQLite store. Write transactions open with BEGIN IMMEDIATE, so a
// transaction holds the database write lock from its first statement until commit
// and concurrent writers queue behind it for up to the busy timeout.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var _ domain.Store = (*DB)(nil)

const dsnParams = "_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, dsnParams))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}
	if err := db.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS room_types (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            code TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            base_price TEXT NOT NULL,
            total_rooms INTEGER NOT NULL DEFAULT 0,
            max_adults INTEGER NOT NULL DEFAULT 2,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS room_inventory (
            room_type_id INTEGER NOT NULL REFERENCES room_types(id),
            date TEXT NOT NULL,
            total_rooms INTEGER NOT NULL CHECK (total_rooms >= 0),
            available_rooms INTEGER NOT NULL CHECK (available_rooms >= 0 AND available_rooms <= total_rooms),
            price TEXT,
            is_available BOOLEAN NOT NULL DEFAULT 1,
            updated_at DATETIME NOT NULL,
            PRIMARY KEY (room_type_id, date)
        )`,
		`CREATE TABLE IF NOT EXISTS room_holds (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            token TEXT NOT NULL,
            session_id TEXT NOT NULL DEFAULT '',
            room_type_id INTEGER NOT NULL REFERENCES room_types(id),
            quantity INTEGER NOT NULL CHECK (quantity >= 1),
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            expires_at INTEGER NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS cancellation_policies (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            tiers TEXT NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            code TEXT UNIQUE NOT NULL,
            status TEXT NOT NULL,
            payment_status TEXT NOT NULL,
            session_id TEXT NOT NULL DEFAULT '',
            guest_name TEXT NOT NULL,
            guest_email TEXT NOT NULL,
            guest_phone TEXT NOT NULL DEFAULT '',
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            adults INTEGER NOT NULL,
            meal_plan TEXT NOT NULL,
            room_subtotal TEXT NOT NULL,
            meal_total TEXT NOT NULL,
            extras_total TEXT NOT NULL,
            tax_rate TEXT NOT NULL,
            tax_amount TEXT NOT NULL,
            total_amount TEXT NOT NULL,
            paid_amount TEXT NOT NULL,
            payment_method TEXT NOT NULL DEFAULT '',
            payment_reference TEXT NOT NULL DEFAULT '',
            cancellation_policy_id INTEGER REFERENCES cancellation_policies(id),
            cancellation_reason TEXT NOT NULL DEFAULT '',
            refund_status TEXT NOT NULL,
            refund_amount TEXT NOT NULL,
            refund_reference TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            confirmed_at DATETIME,
            checked_in_at DATETIME,
            checked_out_at DATETIME,
            cancelled_at DATETIME,
            refunded_at DATETIME,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS booking_rooms (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL REFERENCES bookings(id),
            room_type_id INTEGER NOT NULL REFERENCES room_types(id),
            quantity INTEGER NOT NULL CHECK (quantity >= 1),
            unit_price TEXT NOT NULL,
            subtotal TEXT NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_room_holds_token ON room_holds(token)`,
		`CREATE INDEX IF NOT EXISTS idx_room_holds_session ON room_holds(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_room_holds_overlap ON room_holds(room_type_id, check_in, check_out)`,
		`CREATE INDEX IF NOT EXISTS idx_room_holds_expires ON room_holds(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_refund_status ON bookings(refund_status)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_rooms_booking ON booking_rooms(booking_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
