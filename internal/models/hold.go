package models

import "time"

// Hold is one line of a token-addressed reservation. All lines created by a single
// reservation attempt share Token and ExpiresAt.
type Hold struct {
	ID         int64     `json:"id"`
	Token      string    `json:"token"`
	SessionID  string    `json:"session_id"`
	RoomTypeID int64     `json:"room_type_id"`
	Quantity   int       `json:"quantity"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsActive reports whether the hold still counts against availability at now.
func (h *Hold) IsActive(now time.Time) bool {
	return h.ExpiresAt.After(now)
}

// RoomSelection is a requested (room type, quantity) pair. Adults is per room and
// only used by pricing; zero means "use the request default".
type RoomSelection struct {
	RoomTypeID int64 `json:"room_type_id"`
	Quantity   int   `json:"quantity"`
	Adults     int   `json:"adults,omitempty"`
}

// HoldSummary is the read-only projection of an active hold token.
type HoldSummary struct {
	Token            string          `json:"token"`
	SessionID        string          `json:"session_id"`
	CheckIn          time.Time       `json:"check_in"`
	CheckOut         time.Time       `json:"check_out"`
	ExpiresAt        time.Time       `json:"expires_at"`
	RemainingSeconds int64           `json:"remaining_seconds"`
	Lines            []RoomSelection `json:"lines"`
	Pricing          *QuoteBreakdown `json:"pricing,omitempty"`
}
