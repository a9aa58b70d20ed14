package events

import (
	"encoding/json"
	"sync"
	"time"

	"hotelbooking/internal/models"

	"github.com/shopspring/decimal"
)

const (
	EventHoldCreated       = "hold_created"
	EventHoldReleased      = "hold_released"
	EventHoldConverted     = "hold_converted"
	EventBookingCreated    = "booking_created"
	EventBookingConfirmed  = "booking_confirmed"
	EventBookingCheckedIn  = "booking_checked_in"
	EventBookingCheckedOut = "booking_checked_out"
	EventBookingCancelled  = "booking_cancelled"
	EventBookingNoShow     = "booking_no_show"
	EventRefundCompleted   = "refund_completed"
	EventRefundFailed      = "refund_failed"
	EventRefundRetry       = "refund_retry"
)

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID    int64           `json:"booking_id"`
	Code         string          `json:"code"`
	Status       string          `json:"status"`
	CheckIn      string          `json:"check_in"`
	CheckOut     string          `json:"check_out"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	RefundStatus string          `json:"refund_status,omitempty"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Reason       string          `json:"reason,omitempty"`
}

// HoldEventPayload describes a hold token lifecycle change.
type HoldEventPayload struct {
	Token     string                 `json:"token"`
	SessionID string                 `json:"session_id,omitempty"`
	Lines     []models.RoomSelection `json:"lines,omitempty"`
	ExpiresAt time.Time              `json:"expires_at,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	seq         int64
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs subscribers synchronously. It returns the first handler error;
// later handlers still run.
func (b *EventBus) Publish(event *Event) error {
	b.mu.Lock()
	b.seq++
	event.ID = b.seq
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var firstErr error
	for _, handler := range handlers {
		if err := handler(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
