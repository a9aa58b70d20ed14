package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"
)

const bookingColumns = `id, code, status, payment_status, session_id, guest_name, guest_email, guest_phone,
                 check_in, check_out, adults, meal_plan, room_subtotal, meal_total, extras_total,
                 tax_rate, tax_amount, total_amount, paid_amount, payment_method, payment_reference,
                 cancellation_policy_id, cancellation_reason, refund_status, refund_amount, refund_reference,
                 created_at, updated_at, confirmed_at, checked_in_at, checked_out_at, cancelled_at, refunded_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
                code, status, payment_status, session_id, guest_name, guest_email, guest_phone,
                check_in, check_out, adults, meal_plan, room_subtotal, meal_total, extras_total,
                tax_rate, tax_amount, total_amount, paid_amount, payment_method, payment_reference,
                cancellation_policy_id, cancellation_reason, refund_status, refund_amount, refund_reference,
                created_at, updated_at, version
              ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = booking.CreatedAt

	result, err := db.conn(ctx).ExecContext(ctx, query,
		booking.Code,
		booking.Status,
		booking.PaymentStatus,
		booking.SessionID,
		booking.GuestName,
		booking.GuestEmail,
		booking.GuestPhone,
		dateKey(booking.CheckIn),
		dateKey(booking.CheckOut),
		booking.Adults,
		booking.MealPlan,
		booking.RoomSubtotal,
		booking.MealTotal,
		booking.ExtrasTotal,
		booking.TaxRate,
		booking.TaxAmount,
		booking.TotalAmount,
		booking.PaidAmount,
		booking.PaymentMethod,
		booking.PaymentReference,
		nullInt64(booking.CancellationPolicyID),
		booking.CancellationReason,
		booking.RefundStatus,
		booking.RefundAmount,
		booking.RefundReference,
		booking.CreatedAt,
		booking.UpdatedAt,
		1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateBookingCode
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.Version = 1

	roomQuery := `INSERT INTO booking_rooms (booking_id, room_type_id, quantity, unit_price, subtotal)
                  VALUES (?, ?, ?, ?, ?)`
	for i := range booking.Rooms {
		room := &booking.Rooms[i]
		res, err := db.conn(ctx).ExecContext(ctx, roomQuery, id, room.RoomTypeID, room.Quantity, room.UnitPrice, room.Subtotal)
		if err != nil {
			return fmt.Errorf("failed to create booking room: %w", err)
		}
		if room.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get booking room id: %w", err)
		}
		room.BookingID = id
	}
	return nil
}

func (db *DB) GetBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE code = ?`
	booking, err := scanBooking(db.conn(ctx).QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking.Rooms, err = db.getBookingRooms(ctx, booking.ID); err != nil {
		return nil, err
	}
	return booking, nil
}

// LockBookingByCode reads the booking inside the caller's write transaction.
func (db *DB) LockBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	return db.GetBookingByCode(ctx, code)
}

func (db *DB) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	query := `UPDATE bookings SET
                status = ?, payment_status = ?, paid_amount = ?, payment_method = ?, payment_reference = ?,
                cancellation_reason = ?, refund_status = ?, refund_amount = ?, refund_reference = ?,
                confirmed_at = ?, checked_in_at = ?, checked_out_at = ?, cancelled_at = ?, refunded_at = ?,
                updated_at = ?, version = version + 1
              WHERE id = ? AND version = ?`
	now := time.Now().UTC()
	result, err := db.conn(ctx).ExecContext(ctx, query,
		booking.Status,
		booking.PaymentStatus,
		booking.PaidAmount,
		booking.PaymentMethod,
		booking.PaymentReference,
		booking.CancellationReason,
		booking.RefundStatus,
		booking.RefundAmount,
		booking.RefundReference,
		nullTime(booking.ConfirmedAt),
		nullTime(booking.CheckedInAt),
		nullTime(booking.CheckedOutAt),
		nullTime(booking.CancelledAt),
		nullTime(booking.RefundedAt),
		now,
		booking.ID,
		booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrConcurrentModification
	}
	booking.Version++
	booking.UpdatedAt = now
	return nil
}

func (db *DB) ListBookingsByRefundStatus(ctx context.Context, status models.RefundStatus, limit int) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE refund_status = ? ORDER BY updated_at ASC LIMIT ?`
	rows, err := db.conn(ctx).QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by refund status: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, b := range bookings {
		if b.Rooms, err = db.getBookingRooms(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (db *DB) getBookingRooms(ctx context.Context, bookingID int64) ([]models.BookingRoom, error) {
	query := `SELECT id, booking_id, room_type_id, quantity, unit_price, subtotal
              FROM booking_rooms WHERE booking_id = ? ORDER BY room_type_id ASC`
	rows, err := db.conn(ctx).QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.BookingRoom
	for rows.Next() {
		var r models.BookingRoom
		if err := rows.Scan(&r.ID, &r.BookingID, &r.RoomTypeID, &r.Quantity, &r.UnitPrice, &r.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan booking room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                                                        models.Booking
		checkIn, checkOut                                        string
		policyID                                                 sql.NullInt64
		confirmed, checkedIn, checkedOut, cancelled, refundedAt sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.Code, &b.Status, &b.PaymentStatus, &b.SessionID, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&checkIn, &checkOut, &b.Adults, &b.MealPlan, &b.RoomSubtotal, &b.MealTotal, &b.ExtrasTotal,
		&b.TaxRate, &b.TaxAmount, &b.TotalAmount, &b.PaidAmount, &b.PaymentMethod, &b.PaymentReference,
		&policyID, &b.CancellationReason, &b.RefundStatus, &b.RefundAmount, &b.RefundReference,
		&b.CreatedAt, &b.UpdatedAt, &confirmed, &checkedIn, &checkedOut, &cancelled, &refundedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	if b.CheckIn, err = models.ParseDate(checkIn); err != nil {
		return nil, err
	}
	if b.CheckOut, err = models.ParseDate(checkOut); err != nil {
		return nil, err
	}
	if policyID.Valid {
		id := policyID.Int64
		b.CancellationPolicyID = &id
	}
	b.ConfirmedAt = timePtr(confirmed)
	b.CheckedInAt = timePtr(checkedIn)
	b.CheckedOutAt = timePtr(checkedOut)
	b.CancelledAt = timePtr(cancelled)
	b.RefundedAt = timePtr(refundedAt)
	return &b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
