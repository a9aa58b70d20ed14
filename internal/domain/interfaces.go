package domain

import (
	"context"
	"time"

	"hotelbooking/internal/models"

	"github.com/shopspring/decimal"
)

// Transactor runs fn inside one database transaction. Repository calls made with
// the ctx passed to fn join that transaction. Write locks are taken on first access
// and held until fn returns; a non-nil error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type InventoryRepository interface {
	// LockInventoryRange returns the rows in [from, to) ordered by date and holds a
	// write lock on them for the rest of the transaction.
	LockInventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) ([]*models.InventoryDay, error)
	GetInventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) ([]*models.InventoryDay, error)
	// DecreaseAvailable decrements every night in [from, to) whose available_rooms
	// covers qty and returns the number of rows changed.
	DecreaseAvailable(ctx context.Context, roomTypeID int64, from, to time.Time, qty int) (int64, error)
	// IncreaseAvailable increments every night in [from, to), clamped at total_rooms.
	IncreaseAvailable(ctx context.Context, roomTypeID int64, from, to time.Time, qty int) (int64, error)
	InsertMissingInventory(ctx context.Context, roomTypeID int64, from, to time.Time, totalRooms int, price decimal.NullDecimal) (int64, error)
	SetInventoryAvailability(ctx context.Context, roomTypeID int64, from, to time.Time, available bool) (int64, error)
	SetInventoryPrice(ctx context.Context, roomTypeID int64, from, to time.Time, price decimal.NullDecimal) (int64, error)
	ResizeInventory(ctx context.Context, roomTypeID int64, from, to time.Time, totalRooms int) (int64, error)
}

type HoldRepository interface {
	InsertHold(ctx context.Context, hold *models.Hold) error
	// LockHoldsByToken returns the token's lines and write-locks them.
	LockHoldsByToken(ctx context.Context, token string) ([]*models.Hold, error)
	GetHoldsByToken(ctx context.Context, token string) ([]*models.Hold, error)
	// SumActiveHolds adds up quantities of holds for the room type overlapping
	// [from, to) with expires_at > now, skipping excludeToken.
	SumActiveHolds(ctx context.Context, roomTypeID int64, from, to, now time.Time, excludeToken string) (int, error)
	ListActiveHolds(ctx context.Context, roomTypeID int64, from, to, now time.Time) ([]*models.Hold, error)
	UpdateHoldExpiry(ctx context.Context, token string, expiresAt, now time.Time) (int64, error)
	DeleteHoldsByToken(ctx context.Context, token string) (int64, error)
	DeleteHoldsBySession(ctx context.Context, sessionID string) (int64, error)
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error)
}

type BookingRepository interface {
	// CreateBooking inserts the booking and its room lines. ErrDuplicateBookingCode
	// is returned when the code collides with an existing booking.
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByCode(ctx context.Context, code string) (*models.Booking, error)
	LockBookingByCode(ctx context.Context, code string) (*models.Booking, error)
	// UpdateBooking writes lifecycle fields guarded by the booking version.
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	ListBookingsByRefundStatus(ctx context.Context, status models.RefundStatus, limit int) ([]*models.Booking, error)
}

type CatalogRepository interface {
	CreateRoomType(ctx context.Context, roomType *models.RoomType) error
	GetRoomType(ctx context.Context, id int64) (*models.RoomType, error)
	GetRoomTypeByCode(ctx context.Context, code string) (*models.RoomType, error)
	ListRoomTypes(ctx context.Context, activeOnly bool) ([]*models.RoomType, error)
	CreateCancellationPolicy(ctx context.Context, policy *models.CancellationPolicy) error
	GetCancellationPolicy(ctx context.Context, id int64) (*models.CancellationPolicy, error)
}

// Store is implemented by every database backend.
type Store interface {
	Transactor
	InventoryRepository
	HoldRepository
	BookingRepository
	CatalogRepository
	Ping(ctx context.Context) error
	Close() error
}

// CheckoutState is what the transport remembers between steps of one checkout.
type CheckoutState struct {
	SessionID  string                 `json:"session_id"`
	HoldToken  string                 `json:"hold_token"`
	CheckIn    string                 `json:"check_in"`
	CheckOut   string                 `json:"check_out"`
	Selections []models.RoomSelection `json:"selections"`
	// HoldExpiresAt bounds the state's lifetime; zero means the store TTL alone.
	HoldExpiresAt time.Time `json:"hold_expires_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StateTTL is how long the state may be kept: limit, shortened to the hold's
// remaining lifetime. ok is false once the hold has expired. A zero limit with
// no hold expiry means no TTL.
func (s *CheckoutState) StateTTL(now time.Time, limit time.Duration) (ttl time.Duration, ok bool) {
	ttl = limit
	if s.HoldExpiresAt.IsZero() {
		return ttl, true
	}
	left := s.HoldExpiresAt.Sub(now)
	if left <= 0 {
		return 0, false
	}
	if ttl <= 0 || left < ttl {
		ttl = left
	}
	return ttl, true
}

type CheckoutStateRepository interface {
	GetState(ctx context.Context, sessionID string) (*CheckoutState, error)
	SetState(ctx context.Context, state *CheckoutState) error
	ClearState(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RefundRequest struct {
	BookingCode      string          `json:"booking_code"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentReference string          `json:"payment_reference"`
}

// RefundGateway executes refunds against the payment provider.
type RefundGateway interface {
	Refund(ctx context.Context, req RefundRequest) (models.RefundResult, error)
}
