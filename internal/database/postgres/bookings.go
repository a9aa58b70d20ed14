package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, code, status, payment_status, session_id, guest_name, guest_email, guest_phone,
	check_in, check_out, adults, meal_plan, room_subtotal::text, meal_total::text, extras_total::text,
	tax_rate::text, tax_amount::text, total_amount::text, paid_amount::text, payment_method, payment_reference,
	cancellation_policy_id, cancellation_reason, refund_status, refund_amount::text, refund_reference,
	created_at, updated_at, confirmed_at, checked_in_at, checked_out_at, cancelled_at, refunded_at, version`

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	const stmt = `
INSERT INTO bookings (
	code, status, payment_status, session_id, guest_name, guest_email, guest_phone,
	check_in, check_out, adults, meal_plan, room_subtotal, meal_total, extras_total,
	tax_rate, tax_amount, total_amount, paid_amount, payment_method, payment_reference,
	cancellation_policy_id, cancellation_reason, refund_status, refund_amount, refund_reference,
	created_at, updated_at, version
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12::text::numeric, $13::text::numeric, $14::text::numeric,
	$15::text::numeric, $16::text::numeric, $17::text::numeric, $18::text::numeric, $19, $20,
	$21, $22, $23, $24::text::numeric, $25,
	$26, $26, 1
) RETURNING id`
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	booking.UpdatedAt = booking.CreatedAt

	err := s.queryRow(ctx, stmt,
		booking.Code,
		string(booking.Status),
		string(booking.PaymentStatus),
		booking.SessionID,
		booking.GuestName,
		booking.GuestEmail,
		booking.GuestPhone,
		models.DateOf(booking.CheckIn),
		models.DateOf(booking.CheckOut),
		booking.Adults,
		string(booking.MealPlan),
		moneyArg(booking.RoomSubtotal),
		moneyArg(booking.MealTotal),
		moneyArg(booking.ExtrasTotal),
		moneyArg(booking.TaxRate),
		moneyArg(booking.TaxAmount),
		moneyArg(booking.TotalAmount),
		moneyArg(booking.PaidAmount),
		booking.PaymentMethod,
		booking.PaymentReference,
		booking.CancellationPolicyID,
		booking.CancellationReason,
		string(booking.RefundStatus),
		moneyArg(booking.RefundAmount),
		booking.RefundReference,
		booking.CreatedAt,
	).Scan(&booking.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateBookingCode
		}
		return fmt.Errorf("create booking: %w", err)
	}
	booking.Version = 1

	const roomStmt = `
INSERT INTO booking_rooms (booking_id, room_type_id, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric)
RETURNING id`
	for i := range booking.Rooms {
		room := &booking.Rooms[i]
		if err := s.queryRow(ctx, roomStmt, booking.ID, room.RoomTypeID, room.Quantity,
			moneyArg(room.UnitPrice), moneyArg(room.Subtotal)).Scan(&room.ID); err != nil {
			return fmt.Errorf("create booking room: %w", err)
		}
		room.BookingID = booking.ID
	}
	return nil
}

func (s *Store) GetBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	return s.getBooking(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE code = $1`, code)
}

func (s *Store) LockBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	return s.getBooking(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE code = $1 FOR UPDATE`, code)
}

func (s *Store) getBooking(ctx context.Context, query, code string) (*models.Booking, error) {
	booking, err := scanBooking(s.queryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking.Rooms, err = s.getBookingRooms(ctx, booking.ID); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Store) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	const stmt = `
UPDATE bookings SET
	status = $3, payment_status = $4, paid_amount = $5::text::numeric, payment_method = $6, payment_reference = $7,
	cancellation_reason = $8, refund_status = $9, refund_amount = $10::text::numeric, refund_reference = $11,
	confirmed_at = $12, checked_in_at = $13, checked_out_at = $14, cancelled_at = $15, refunded_at = $16,
	updated_at = $17, version = version + 1
WHERE id = $1 AND version = $2`
	now := time.Now().UTC()
	tag, err := s.exec(ctx, stmt,
		booking.ID,
		booking.Version,
		string(booking.Status),
		string(booking.PaymentStatus),
		moneyArg(booking.PaidAmount),
		booking.PaymentMethod,
		booking.PaymentReference,
		booking.CancellationReason,
		string(booking.RefundStatus),
		moneyArg(booking.RefundAmount),
		booking.RefundReference,
		booking.ConfirmedAt,
		booking.CheckedInAt,
		booking.CheckedOutAt,
		booking.CancelledAt,
		booking.RefundedAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	booking.Version++
	booking.UpdatedAt = now
	return nil
}

func (s *Store) ListBookingsByRefundStatus(ctx context.Context, status models.RefundStatus, limit int) ([]*models.Booking, error) {
	rows, err := s.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE refund_status = $1 ORDER BY updated_at LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list bookings by refund status: %w", err)
	}

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, b := range bookings {
		if b.Rooms, err = s.getBookingRooms(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (s *Store) getBookingRooms(ctx context.Context, bookingID int64) ([]models.BookingRoom, error) {
	rows, err := s.query(ctx, `
SELECT id, booking_id, room_type_id, quantity, unit_price::text, subtotal::text
FROM booking_rooms WHERE booking_id = $1 ORDER BY room_type_id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.BookingRoom
	for rows.Next() {
		var (
			r                   models.BookingRoom
			unitPrice, subtotal string
		)
		if err := rows.Scan(&r.ID, &r.BookingID, &r.RoomTypeID, &r.Quantity, &unitPrice, &subtotal); err != nil {
			return nil, fmt.Errorf("scan booking room: %w", err)
		}
		if r.UnitPrice, err = parseMoney(unitPrice); err != nil {
			return nil, err
		}
		if r.Subtotal, err = parseMoney(subtotal); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var (
		b                                       models.Booking
		status, paymentStatus, mealPlan, refund string
		money                                   [8]string
	)
	err := row.Scan(
		&b.ID, &b.Code, &status, &paymentStatus, &b.SessionID, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&b.CheckIn, &b.CheckOut, &b.Adults, &mealPlan, &money[0], &money[1], &money[2],
		&money[3], &money[4], &money[5], &money[6], &b.PaymentMethod, &b.PaymentReference,
		&b.CancellationPolicyID, &b.CancellationReason, &refund, &money[7], &b.RefundReference,
		&b.CreatedAt, &b.UpdatedAt, &b.ConfirmedAt, &b.CheckedInAt, &b.CheckedOutAt, &b.CancelledAt, &b.RefundedAt,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.Status = models.BookingStatus(status)
	b.PaymentStatus = models.PaymentStatus(paymentStatus)
	b.MealPlan = models.MealPlan(mealPlan)
	b.RefundStatus = models.RefundStatus(refund)
	b.CheckIn = models.DateOf(b.CheckIn)
	b.CheckOut = models.DateOf(b.CheckOut)

	targets := []*decimalField{
		{&money[0], &b.RoomSubtotal}, {&money[1], &b.MealTotal}, {&money[2], &b.ExtrasTotal},
		{&money[3], &b.TaxRate}, {&money[4], &b.TaxAmount}, {&money[5], &b.TotalAmount},
		{&money[6], &b.PaidAmount}, {&money[7], &b.RefundAmount},
	}
	for _, f := range targets {
		d, err := parseMoney(*f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}
	return &b, nil
}
