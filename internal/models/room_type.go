package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomType is read-only reference data for the core: base price and nominal capacity.
type RoomType struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	BasePrice  decimal.Decimal `json:"base_price"`
	TotalRooms int             `json:"total_rooms"`
	MaxAdults  int             `json:"max_adults"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
