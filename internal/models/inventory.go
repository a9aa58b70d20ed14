package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryDay is one room-type capacity row for a single calendar date.
// AvailableRooms never exceeds TotalRooms and never drops below zero.
type InventoryDay struct {
	RoomTypeID     int64               `json:"room_type_id"`
	Date           time.Time           `json:"date"`
	TotalRooms     int                 `json:"total_rooms"`
	AvailableRooms int                 `json:"available_rooms"`
	Price          decimal.NullDecimal `json:"price"`
	IsAvailable    bool                `json:"is_available"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NightAvailability is the display view of one night: ledger numbers plus active holds.
type NightAvailability struct {
	Date           time.Time       `json:"date"`
	TotalRooms     int             `json:"total_rooms"`
	AvailableRooms int             `json:"available_rooms"`
	HeldRooms      int             `json:"held_rooms"`
	Effective      int             `json:"effective"`
	IsAvailable    bool            `json:"is_available"`
	Price          decimal.Decimal `json:"price"`
}
