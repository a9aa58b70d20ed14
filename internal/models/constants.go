package models

import "time"

const (
	// DefaultHoldTTL is the hold lifetime when the caller does not choose one.
	DefaultHoldTTL = 15 * time.Minute

	// DefaultMaxStayNights caps a single reservation.
	DefaultMaxStayNights = 30

	// DefaultInventoryHorizonDays is how far ahead seeded inventory reaches.
	DefaultInventoryHorizonDays = 365

	// DefaultCheckOutHour is the UTC hour by which guests leave on checkout day.
	DefaultCheckOutHour = 11

	// FreeCancellationHours applies when a booking has no cancellation policy.
	FreeCancellationHours = 24

	// SessionStateTTL bounds checkout state kept per session.
	SessionStateTTL = 30 * time.Minute

	// HoldRateLimitAttempts per HoldRateLimitWindow per session.
	HoldRateLimitAttempts = 10
	HoldRateLimitWindow   = time.Minute

	// RefundQueueSize is the in-memory refund queue capacity.
	RefundQueueSize = 128

	// BookingCodePrefix starts every human-readable booking code.
	BookingCodePrefix = "HB"
)
