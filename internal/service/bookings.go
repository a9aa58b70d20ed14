package service

import (
	"context"
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"hotelbooking/internal/clock"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxCodeAttempts = 3

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewBookingCode returns a human-readable code such as HB-7KQ2M4XZ9A.
func NewBookingCode() string {
	id := uuid.New()
	return models.BookingCodePrefix + "-" + codeEncoding.EncodeToString(id[:])[:10]
}

// CheckInWindow reports whether a booking may be checked in at now.
type CheckInWindow func(b *models.Booking, now time.Time) bool

// DefaultCheckInWindow opens at midnight of the check-in date and closes at the
// start of the check-out date.
func DefaultCheckInWindow(b *models.Booking, now time.Time) bool {
	return !now.Before(models.DateOf(b.CheckIn)) && now.Before(models.DateOf(b.CheckOut))
}

// BookingStateMachine drives bookings through their lifecycle and keeps the
// ledger in step with each transition.
type BookingStateMachine struct {
	store         domain.Store
	ledger        *InventoryLedger
	holds         *HoldManager
	pricing       *PricingEngine
	publisher     domain.EventPublisher
	clock         clock.Clock
	checkInWindow CheckInWindow
	newCode       func() string
	logger        *zerolog.Logger
}

type BookingOption func(*BookingStateMachine)

func WithCheckInWindow(w CheckInWindow) BookingOption {
	return func(s *BookingStateMachine) {
		if w != nil {
			s.checkInWindow = w
		}
	}
}

// WithCodeGenerator replaces NewBookingCode.
func WithCodeGenerator(gen func() string) BookingOption {
	return func(s *BookingStateMachine) {
		if gen != nil {
			s.newCode = gen
		}
	}
}

func NewBookingStateMachine(store domain.Store, ledger *InventoryLedger, holds *HoldManager, pricing *PricingEngine, publisher domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger, opts ...BookingOption) *BookingStateMachine {
	if clk == nil {
		clk = clock.NewSystem()
	}
	s := &BookingStateMachine{
		store:         store,
		ledger:        ledger,
		holds:         holds,
		pricing:       pricing,
		publisher:     publisher,
		clock:         clk,
		checkInWindow: DefaultCheckInWindow,
		newCode:       NewBookingCode,
		logger:        logging.Component(logger, "bookings"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookingDetails is what the guest supplies at checkout.
type BookingDetails struct {
	Guest                models.Guest
	MealPlan             models.MealPlan
	Adults               int
	Extras               []models.ExtraRequest
	TaxRate              *decimal.Decimal
	CancellationPolicyID *int64
}

type CreateDirectInput struct {
	BookingDetails
	Selections []models.RoomSelection
	CheckIn    time.Time
	CheckOut   time.Time
	SessionID  string
}

func (d BookingDetails) validate() error {
	if strings.TrimSpace(d.Guest.Name) == "" || strings.TrimSpace(d.Guest.Email) == "" {
		return domain.ErrInvalidGuest
	}
	if d.Adults < 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func (s *BookingStateMachine) pricingOptions(d BookingDetails) models.PricingOptions {
	opts := models.PricingOptions{
		MealPlan: d.MealPlan,
		Extras:   d.Extras,
		TaxRate:  s.pricing.DefaultTaxRate(),
		Adults:   d.Adults,
	}
	if opts.MealPlan == "" {
		opts.MealPlan = models.MealRoomOnly
	}
	if d.TaxRate != nil {
		opts.TaxRate = *d.TaxRate
	}
	return opts
}

func (s *BookingStateMachine) newBooking(d BookingDetails, sessionID string, checkIn, checkOut time.Time, quote *models.QuoteBreakdown, opts models.PricingOptions) *models.Booking {
	b := &models.Booking{
		Code:                 s.newCode(),
		Status:               models.StatusPending,
		PaymentStatus:        models.PaymentUnpaid,
		SessionID:            sessionID,
		GuestName:            strings.TrimSpace(d.Guest.Name),
		GuestEmail:           strings.TrimSpace(d.Guest.Email),
		GuestPhone:           strings.TrimSpace(d.Guest.Phone),
		CheckIn:              models.DateOf(checkIn),
		CheckOut:             models.DateOf(checkOut),
		Adults:               max(1, d.Adults),
		MealPlan:             opts.MealPlan,
		RoomSubtotal:         quote.RoomSubtotal,
		MealTotal:            quote.MealTotal,
		ExtrasTotal:          quote.ExtrasTotal,
		TaxRate:              quote.TaxRate,
		TaxAmount:            quote.Tax,
		TotalAmount:          quote.Total,
		PaidAmount:           decimal.Zero,
		CancellationPolicyID: d.CancellationPolicyID,
		RefundStatus:         models.RefundNone,
		RefundAmount:         decimal.Zero,
		CreatedAt:            s.clock.Now(),
	}
	for _, line := range quote.Rooms {
		b.Rooms = append(b.Rooms, models.BookingRoom{
			RoomTypeID: line.RoomTypeID,
			Quantity:   line.Quantity,
			UnitPrice:  line.StayPrice,
			Subtotal:   round2(line.StayPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))),
		})
	}
	return b
}

func (s *BookingStateMachine) checkPolicy(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.store.GetCancellationPolicy(ctx, *id)
	return err
}

// createWithRetry runs fn in a fresh transaction, retrying when the generated
// booking code collides.
func (s *BookingStateMachine) createWithRetry(ctx context.Context, fn func(txCtx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		err = s.store.WithinTx(ctx, fn)
		if !errors.Is(err, domain.ErrDuplicateBookingCode) {
			return err
		}
		s.logger.Warn().Int("attempt", attempt+1).Msg("booking code collision, retrying")
	}
	return err
}

// CreateFromHold turns an active hold into a Pending booking. Pricing, the
// booking insert and the hold conversion commit together.
func (s *BookingStateMachine) CreateFromHold(ctx context.Context, token string, d BookingDetails) (*models.Booking, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	opts := s.pricingOptions(d)
	now := s.clock.Now()

	var (
		booking     *models.Booking
		lines       []*models.Hold
		holdExpired bool
	)
	err := s.createWithRetry(ctx, func(txCtx context.Context) error {
		holdExpired = false
		if err := s.checkPolicy(txCtx, d.CancellationPolicyID); err != nil {
			return err
		}
		held, expired, err := s.holds.lockActiveLines(txCtx, token, now)
		if err != nil {
			return err
		}
		if expired {
			// commit the removal of the expired lines, then report it
			holdExpired = true
			return nil
		}
		if held == nil {
			return domain.ErrHoldNotFound
		}
		first := held[0]
		quote, err := s.pricing.PriceMultiRoom(txCtx, selectionsOf(held), first.CheckIn, first.CheckOut, opts)
		if err != nil {
			return err
		}
		booking = s.newBooking(d, first.SessionID, first.CheckIn, first.CheckOut, quote, opts)
		if err := s.store.CreateBooking(txCtx, booking); err != nil {
			return err
		}
		lines, err = s.holds.convertLocked(txCtx, token, now)
		if err != nil {
			return err
		}
		if lines == nil {
			return domain.ErrHoldNotFound
		}
		return nil
	})
	if err == nil && holdExpired {
		err = domain.ErrHoldExpired
	}
	if err != nil {
		metrics.IncTransition("create", "error")
		return nil, err
	}

	s.holds.converted(token, booking.ID, lines)
	s.created(booking)
	return booking, nil
}

// CreateDirect books without a prior hold, checking availability against the
// ledger and other guests' holds.
func (s *BookingStateMachine) CreateDirect(ctx context.Context, in CreateDirectInput) (*models.Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.holds.validateStay(in.CheckIn, in.CheckOut); err != nil {
		return nil, err
	}
	selections, err := normalizeSelections(in.Selections)
	if err != nil {
		return nil, err
	}
	opts := s.pricingOptions(in.BookingDetails)
	now := s.clock.Now()
	checkIn, checkOut := models.DateOf(in.CheckIn), models.DateOf(in.CheckOut)

	var booking *models.Booking
	err = s.createWithRetry(ctx, func(txCtx context.Context) error {
		if err := s.checkPolicy(txCtx, in.CancellationPolicyID); err != nil {
			return err
		}
		if err := s.holds.sweepExpired(txCtx, now); err != nil {
			return err
		}
		for _, sel := range selections {
			if err := s.holds.requireEffective(txCtx, sel.RoomTypeID, checkIn, checkOut, now, sel.Quantity, ""); err != nil {
				return err
			}
			if err := s.ledger.Decrease(txCtx, sel.RoomTypeID, checkIn, checkOut, sel.Quantity); err != nil {
				return err
			}
		}
		quote, err := s.pricing.PriceMultiRoom(txCtx, selections, checkIn, checkOut, opts)
		if err != nil {
			return err
		}
		booking = s.newBooking(in.BookingDetails, in.SessionID, checkIn, checkOut, quote, opts)
		return s.store.CreateBooking(txCtx, booking)
	})
	if err != nil {
		metrics.IncTransition("create", "error")
		return nil, err
	}
	s.created(booking)
	return booking, nil
}

func (s *BookingStateMachine) created(b *models.Booking) {
	metrics.IncTransition("create", "ok")
	s.logger.Info().
		Str("code", b.Code).
		Int64("booking_id", b.ID).
		Str("total", b.TotalAmount.StringFixed(2)).
		Msg("booking created")
	s.publish(events.EventBookingCreated, b, "")
}

func (s *BookingStateMachine) GetBooking(ctx context.Context, code string) (*models.Booking, error) {
	return s.store.GetBookingByCode(ctx, code)
}

// transition locks the booking, resolves the next status from the transition
// table and lets apply run guards and side effects in the same transaction.
func (s *BookingStateMachine) transition(ctx context.Context, code string, action models.BookingAction, apply func(txCtx context.Context, b *models.Booking, now time.Time) error) (*models.Booking, error) {
	now := s.clock.Now()
	var booking *models.Booking
	err := s.store.WithinTx(ctx, func(txCtx context.Context) error {
		b, err := s.store.LockBookingByCode(txCtx, code)
		if err != nil {
			return err
		}
		next, ok := models.NextStatus(b.Status, action)
		if !ok {
			return &domain.TransitionError{From: b.Status, Action: action}
		}
		if apply != nil {
			if err := apply(txCtx, b, now); err != nil {
				return err
			}
		}
		b.Status = next
		if err := s.store.UpdateBooking(txCtx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		metrics.IncTransition(string(action), "rejected")
		s.logger.Debug().Err(err).Str("code", code).Str("action", string(action)).Msg("transition rejected")
		return nil, err
	}
	metrics.IncTransition(string(action), "ok")
	s.logger.Info().Str("code", code).Str("action", string(action)).Str("status", string(booking.Status)).Msg("booking transitioned")
	return booking, nil
}

// Confirm records a successful payment capture on a Pending booking.
func (s *BookingStateMachine) Confirm(ctx context.Context, code string, capture models.PaymentCapture) (*models.Booking, error) {
	b, err := s.transition(ctx, code, models.ActionConfirm, func(_ context.Context, b *models.Booking, now time.Time) error {
		if !capture.Success || capture.Amount.IsNegative() {
			return domain.ErrPaymentFailed
		}
		b.PaymentStatus = models.PaymentPaid
		b.PaidAmount = round2(capture.Amount)
		b.PaymentMethod = capture.Method
		b.PaymentReference = capture.Reference
		b.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.EventBookingConfirmed, b, "")
	return b, nil
}

func (s *BookingStateMachine) CheckIn(ctx context.Context, code string) (*models.Booking, error) {
	b, err := s.transition(ctx, code, models.ActionCheckIn, func(_ context.Context, b *models.Booking, now time.Time) error {
		if !s.checkInWindow(b, now) {
			return domain.ErrOutsideCheckInWindow
		}
		b.CheckedInAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.EventBookingCheckedIn, b, "")
	return b, nil
}

func (s *BookingStateMachine) CheckOut(ctx context.Context, code string) (*models.Booking, error) {
	b, err := s.transition(ctx, code, models.ActionCheckOut, func(_ context.Context, b *models.Booking, now time.Time) error {
		b.CheckedOutAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.EventBookingCheckedOut, b, "")
	return b, nil
}

func (s *BookingStateMachine) restoreRooms(ctx context.Context, b *models.Booking, from time.Time) error {
	if !from.Before(b.CheckOut) {
		return nil
	}
	for _, room := range b.Rooms {
		if err := s.ledger.Increase(ctx, room.RoomTypeID, from, b.CheckOut, room.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Cancel returns every night of the stay to the ledger and computes the refund
// owed under the booking's policy. A positive refund is left Pending for the
// refund worker.
func (s *BookingStateMachine) Cancel(ctx context.Context, code, reason string) (*models.Booking, error) {
	b, err := s.transition(ctx, code, models.ActionCancel, func(txCtx context.Context, b *models.Booking, now time.Time) error {
		var policy *models.CancellationPolicy
		if b.CancellationPolicyID != nil {
			p, err := s.store.GetCancellationPolicy(txCtx, *b.CancellationPolicyID)
			if err != nil {
				return err
			}
			policy = p
		}
		if err := s.restoreRooms(txCtx, b, b.CheckIn); err != nil {
			return err
		}
		quote := s.pricing.CalculateRefund(b.PaidAmount, b.CheckIn, policy)
		b.RefundAmount = quote.RefundAmount
		if quote.RefundAmount.IsPositive() {
			b.RefundStatus = models.RefundPending
		} else {
			b.RefundStatus = models.RefundNotApplicable
		}
		b.CancellationReason = strings.TrimSpace(reason)
		b.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.EventBookingCancelled, b, b.CancellationReason)
	return b, nil
}

// MarkNoShow closes a Confirmed booking whose guest never arrived and releases
// the nights from today on.
func (s *BookingStateMachine) MarkNoShow(ctx context.Context, code string) (*models.Booking, error) {
	b, err := s.transition(ctx, code, models.ActionMarkNoShow, func(txCtx context.Context, b *models.Booking, now time.Time) error {
		today := models.DateOf(now)
		if b.CheckIn.After(today) {
			return domain.ErrNoShowTooEarly
		}
		from := b.CheckIn
		if today.After(from) {
			from = today
		}
		return s.restoreRooms(txCtx, b, from)
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.EventBookingNoShow, b, "")
	return b, nil
}

// RecordRefundResult settles a Pending refund. Results for anything else are
// rejected with ErrAlreadyProcessed.
func (s *BookingStateMachine) RecordRefundResult(ctx context.Context, code string, result models.RefundResult) (*models.Booking, error) {
	b, err := s.updateRefund(ctx, code, models.RefundPending, func(b *models.Booking, now time.Time) {
		if !result.Success {
			b.RefundStatus = models.RefundFailed
			return
		}
		b.RefundStatus = models.RefundCompleted
		b.RefundReference = result.Reference
		b.RefundedAt = &now
		if b.RefundAmount.GreaterThanOrEqual(b.PaidAmount) {
			b.PaymentStatus = models.PaymentRefunded
		} else {
			b.PaymentStatus = models.PaymentPartiallyRefunded
		}
	})
	if err != nil {
		return nil, err
	}
	if result.Success {
		metrics.IncRefund("completed")
		s.publish(events.EventRefundCompleted, b, "")
	} else {
		metrics.IncRefund("failed")
		s.publish(events.EventRefundFailed, b, result.Message)
	}
	return b, nil
}

// RetryRefund moves a Failed refund back to Pending.
func (s *BookingStateMachine) RetryRefund(ctx context.Context, code string) (*models.Booking, error) {
	b, err := s.updateRefund(ctx, code, models.RefundFailed, func(b *models.Booking, _ time.Time) {
		b.RefundStatus = models.RefundPending
	})
	if err != nil {
		return nil, err
	}
	metrics.IncRefund("retried")
	s.publish(events.EventRefundRetry, b, "")
	return b, nil
}

func (s *BookingStateMachine) updateRefund(ctx context.Context, code string, want models.RefundStatus, apply func(b *models.Booking, now time.Time)) (*models.Booking, error) {
	now := s.clock.Now()
	var booking *models.Booking
	err := s.store.WithinTx(ctx, func(txCtx context.Context) error {
		b, err := s.store.LockBookingByCode(txCtx, code)
		if err != nil {
			return err
		}
		if b.RefundStatus != want {
			return domain.ErrAlreadyProcessed
		}
		apply(b, now)
		if err := s.store.UpdateBooking(txCtx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("code", code).Str("refund_status", string(booking.RefundStatus)).Msg("refund status updated")
	return booking, nil
}

func (s *BookingStateMachine) publish(eventType string, b *models.Booking, reason string) {
	if s.publisher == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:    b.ID,
		Code:         b.Code,
		Status:       string(b.Status),
		CheckIn:      b.CheckIn.Format(models.DateLayout),
		CheckOut:     b.CheckOut.Format(models.DateLayout),
		TotalAmount:  b.TotalAmount,
		RefundStatus: string(b.RefundStatus),
		RefundAmount: b.RefundAmount,
		Reason:       reason,
	}
	if err := s.publisher.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("code", b.Code).Msg("failed to publish event")
	}
}
