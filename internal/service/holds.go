package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"hotelbooking/internal/clock"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HoldManager places short-lived, token-addressed reservations that count
// against availability without touching the ledger until conversion.
type HoldManager struct {
	store         domain.Store
	ledger        *InventoryLedger
	pricing       *PricingEngine
	publisher     domain.EventPublisher
	clock         clock.Clock
	holdTTL       time.Duration
	maxStayNights int
	logger        *zerolog.Logger
}

type HoldOption func(*HoldManager)

func WithHoldTTL(ttl time.Duration) HoldOption {
	return func(m *HoldManager) {
		if ttl > 0 {
			m.holdTTL = ttl
		}
	}
}

func WithMaxStayNights(n int) HoldOption {
	return func(m *HoldManager) {
		if n > 0 {
			m.maxStayNights = n
		}
	}
}

func NewHoldManager(store domain.Store, ledger *InventoryLedger, pricing *PricingEngine, publisher domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger, opts ...HoldOption) *HoldManager {
	if clk == nil {
		clk = clock.NewSystem()
	}
	m := &HoldManager{
		store:         store,
		ledger:        ledger,
		pricing:       pricing,
		publisher:     publisher,
		clock:         clk,
		holdTTL:       models.DefaultHoldTTL,
		maxStayNights: models.DefaultMaxStayNights,
		logger:        logging.Component(logger, "holds"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *HoldManager) HoldTTL() time.Duration {
	return m.holdTTL
}

type CreateHoldsInput struct {
	Selections []models.RoomSelection
	CheckIn    time.Time
	CheckOut   time.Time
	SessionID  string
	// TTL overrides the default lifetime. Zero or negative creates holds that
	// are already expired.
	TTL *time.Duration
}

// normalizeSelections merges lines for the same room type and orders them by
// room type so every transaction locks rows in the same order.
func normalizeSelections(selections []models.RoomSelection) ([]models.RoomSelection, error) {
	if len(selections) == 0 {
		return nil, domain.ErrInvalidQuantity
	}
	merged := make(map[int64]models.RoomSelection, len(selections))
	for _, sel := range selections {
		if sel.Quantity < 1 || sel.RoomTypeID <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		cur, ok := merged[sel.RoomTypeID]
		if !ok {
			merged[sel.RoomTypeID] = sel
			continue
		}
		cur.Quantity += sel.Quantity
		cur.Adults = max(cur.Adults, sel.Adults)
		merged[sel.RoomTypeID] = cur
	}
	out := make([]models.RoomSelection, 0, len(merged))
	for _, sel := range merged {
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomTypeID < out[j].RoomTypeID })
	return out, nil
}

func (m *HoldManager) validateStay(checkIn, checkOut time.Time) error {
	nights, err := validateRange(checkIn, checkOut)
	if err != nil {
		return err
	}
	if nights > m.maxStayNights {
		return domain.ErrStayTooLong
	}
	return nil
}

// sweepExpired removes every hold whose expiry is at or before now. Every
// transaction that reads or writes holds calls it.
func (m *HoldManager) sweepExpired(ctx context.Context, now time.Time) error {
	n, err := m.store.DeleteExpiredHolds(ctx, now)
	if err != nil {
		return err
	}
	if n > 0 {
		metrics.AddHoldSweeps(n)
		m.logger.Debug().Int64("rows", n).Msg("expired holds swept")
	}
	return nil
}

// effectiveAvailability is the locked ledger minimum minus active holds of other
// tokens. It must run inside a transaction.
func (m *HoldManager) effectiveAvailability(ctx context.Context, roomTypeID int64, checkIn, checkOut, now time.Time, qty int, excludeToken string) (int, error) {
	minAvailable, err := m.ledger.CheckAvailabilityLocked(ctx, roomTypeID, checkIn, checkOut, qty)
	if err != nil {
		return 0, err
	}
	held, err := m.store.SumActiveHolds(ctx, roomTypeID, models.DateOf(checkIn), models.DateOf(checkOut), now, excludeToken)
	if err != nil {
		return 0, err
	}
	return minAvailable - held, nil
}

func (m *HoldManager) requireEffective(ctx context.Context, roomTypeID int64, checkIn, checkOut, now time.Time, qty int, excludeToken string) error {
	effective, err := m.effectiveAvailability(ctx, roomTypeID, checkIn, checkOut, now, qty, excludeToken)
	if err != nil {
		return err
	}
	if effective < qty {
		return domain.ErrUnavailable
	}
	return nil
}

// CreateHolds reserves every selection under one new token, or none of them.
func (m *HoldManager) CreateHolds(ctx context.Context, in CreateHoldsInput) (string, error) {
	if err := m.validateStay(in.CheckIn, in.CheckOut); err != nil {
		return "", err
	}
	selections, err := normalizeSelections(in.Selections)
	if err != nil {
		return "", err
	}

	ttl := m.holdTTL
	if in.TTL != nil {
		ttl = *in.TTL
	}
	now := m.clock.Now()
	expiresAt := now.Add(ttl)
	token := uuid.NewString()
	checkIn, checkOut := models.DateOf(in.CheckIn), models.DateOf(in.CheckOut)

	err = m.store.WithinTx(ctx, func(txCtx context.Context) error {
		if err := m.sweepExpired(txCtx, now); err != nil {
			return err
		}
		for _, sel := range selections {
			rt, err := m.store.GetRoomType(txCtx, sel.RoomTypeID)
			if err != nil {
				return err
			}
			if !rt.IsActive {
				return domain.ErrRoomTypeNotFound
			}
			if err := m.requireEffective(txCtx, sel.RoomTypeID, checkIn, checkOut, now, sel.Quantity, ""); err != nil {
				return err
			}
			hold := &models.Hold{
				Token:      token,
				SessionID:  in.SessionID,
				RoomTypeID: sel.RoomTypeID,
				Quantity:   sel.Quantity,
				CheckIn:    checkIn,
				CheckOut:   checkOut,
				ExpiresAt:  expiresAt,
				CreatedAt:  now,
			}
			if err := m.store.InsertHold(txCtx, hold); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnavailable) {
			metrics.IncHold("rejected")
		}
		m.logger.Debug().Err(err).Str("session_id", in.SessionID).Msg("hold rejected")
		return "", err
	}

	metrics.IncHold("created")
	m.logger.Info().
		Str("token", token).
		Str("session_id", in.SessionID).
		Int("lines", len(selections)).
		Time("expires_at", expiresAt).
		Msg("holds created")
	m.publish(events.EventHoldCreated, events.HoldEventPayload{
		Token:     token,
		SessionID: in.SessionID,
		Lines:     selections,
		ExpiresAt: expiresAt,
	})
	return token, nil
}

// ExtendHold resets the expiry of the token's active lines to now+ttl. It
// reports false when nothing active was left to extend.
func (m *HoldManager) ExtendHold(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	now := m.clock.Now()
	var rows int64
	err := m.store.WithinTx(ctx, func(txCtx context.Context) error {
		if err := m.sweepExpired(txCtx, now); err != nil {
			return err
		}
		var err error
		rows, err = m.store.UpdateHoldExpiry(txCtx, token, now.Add(ttl), now)
		return err
	})
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}
	metrics.IncHold("extended")
	return true, nil
}

// ReleaseHolds deletes the token's lines. Releasing an unknown token is a no-op.
func (m *HoldManager) ReleaseHolds(ctx context.Context, token string) (int64, error) {
	rows, err := m.store.DeleteHoldsByToken(ctx, token)
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		metrics.IncHold("released")
		m.logger.Info().Str("token", token).Int64("rows", rows).Msg("holds released")
		m.publish(events.EventHoldReleased, events.HoldEventPayload{Token: token})
	}
	return rows, nil
}

func (m *HoldManager) ReleaseHoldsBySession(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, nil
	}
	rows, err := m.store.DeleteHoldsBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		metrics.IncHold("released")
		m.logger.Info().Str("session_id", sessionID).Int64("rows", rows).Msg("session holds released")
		m.publish(events.EventHoldReleased, events.HoldEventPayload{SessionID: sessionID})
	}
	return rows, nil
}

// lockActiveLines locks the token's lines and then sweeps other expired holds.
// Lines found expired are deleted and reported through expired.
func (m *HoldManager) lockActiveLines(ctx context.Context, token string, now time.Time) (lines []*models.Hold, expired bool, err error) {
	lines, err = m.store.LockHoldsByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}
	for _, line := range lines {
		if !line.IsActive(now) {
			if _, err := m.store.DeleteHoldsByToken(ctx, token); err != nil {
				return nil, false, err
			}
			metrics.IncHold("expired")
			lines, expired = nil, true
			break
		}
	}
	if err := m.sweepExpired(ctx, now); err != nil {
		return nil, false, err
	}
	if len(lines) == 0 {
		return nil, expired, nil
	}
	return lines, false, nil
}

// ValidateAndRefreshHold re-checks every line against current availability
// excluding the token itself. When all lines still fit, the expiry is pushed out
// by the default TTL.
func (m *HoldManager) ValidateAndRefreshHold(ctx context.Context, token string) (bool, error) {
	now := m.clock.Now()
	valid := false
	err := m.store.WithinTx(ctx, func(txCtx context.Context) error {
		lines, _, err := m.lockActiveLines(txCtx, token, now)
		if err != nil || lines == nil {
			return err
		}
		for _, line := range lines {
			err := m.requireEffective(txCtx, line.RoomTypeID, line.CheckIn, line.CheckOut, now, line.Quantity, token)
			if errors.Is(err, domain.ErrUnavailable) {
				return nil
			}
			if err != nil {
				return err
			}
		}
		if _, err := m.store.UpdateHoldExpiry(txCtx, token, now.Add(m.holdTTL), now); err != nil {
			return err
		}
		valid = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !valid {
		metrics.IncHold("invalidated")
		m.logger.Debug().Str("token", token).Msg("hold no longer valid")
		return false, nil
	}
	metrics.IncHold("refreshed")
	return true, nil
}

// convertLocked moves the token's lines into the ledger and deletes them. It
// returns the converted lines, or nil when no active line exists.
func (m *HoldManager) convertLocked(ctx context.Context, token string, now time.Time) ([]*models.Hold, error) {
	lines, _, err := m.lockActiveLines(ctx, token, now)
	if err != nil || lines == nil {
		return nil, err
	}
	for _, line := range lines {
		if err := m.ledger.Decrease(ctx, line.RoomTypeID, line.CheckIn, line.CheckOut, line.Quantity); err != nil {
			return nil, err
		}
	}
	if _, err := m.store.DeleteHoldsByToken(ctx, token); err != nil {
		return nil, err
	}
	return lines, nil
}

// ConvertToBooking applies the token's lines to the ledger for bookingID. A
// second call with the same token returns false and changes nothing.
func (m *HoldManager) ConvertToBooking(ctx context.Context, token string, bookingID int64) (bool, error) {
	now := m.clock.Now()
	var lines []*models.Hold
	err := m.store.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		lines, err = m.convertLocked(txCtx, token, now)
		return err
	})
	if err != nil {
		return false, err
	}
	if lines == nil {
		return false, nil
	}
	m.converted(token, bookingID, lines)
	return true, nil
}

func (m *HoldManager) converted(token string, bookingID int64, lines []*models.Hold) {
	metrics.IncHold("converted")
	m.logger.Info().Str("token", token).Int64("booking_id", bookingID).Int("lines", len(lines)).Msg("holds converted")
	m.publish(events.EventHoldConverted, events.HoldEventPayload{
		Token:     token,
		SessionID: lines[0].SessionID,
		Lines:     selectionsOf(lines),
	})
}

// GetSummary describes the token's active lines. opts nil prices room only at
// the default tax rate.
func (m *HoldManager) GetSummary(ctx context.Context, token string, opts *models.PricingOptions) (*models.HoldSummary, error) {
	now := m.clock.Now()
	lines, err := m.store.GetHoldsByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	active := make([]*models.Hold, 0, len(lines))
	for _, line := range lines {
		if line.IsActive(now) {
			active = append(active, line)
		}
	}
	if len(active) == 0 {
		return nil, domain.ErrHoldNotFound
	}

	first := active[0]
	summary := &models.HoldSummary{
		Token:            token,
		SessionID:        first.SessionID,
		CheckIn:          first.CheckIn,
		CheckOut:         first.CheckOut,
		ExpiresAt:        first.ExpiresAt,
		RemainingSeconds: max(0, int64(first.ExpiresAt.Sub(now)/time.Second)),
		Lines:            selectionsOf(active),
	}
	if m.pricing != nil {
		options := m.pricing.DefaultOptions()
		if opts != nil {
			options = *opts
		}
		quote, err := m.pricing.PriceMultiRoom(ctx, summary.Lines, first.CheckIn, first.CheckOut, options)
		if err != nil {
			return nil, err
		}
		summary.Pricing = quote
	}
	return summary, nil
}

func selectionsOf(lines []*models.Hold) []models.RoomSelection {
	out := make([]models.RoomSelection, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.RoomSelection{RoomTypeID: line.RoomTypeID, Quantity: line.Quantity})
	}
	return out
}

func (m *HoldManager) publish(eventType string, payload interface{}) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishJSON(eventType, payload); err != nil {
		m.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
