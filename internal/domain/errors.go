package domain

import (
	"errors"
	"fmt"

	"hotelbooking/internal/models"
)

var (
	ErrUnavailable            = errors.New("requested rooms are unavailable")
	ErrHoldNotFound           = errors.New("hold not found")
	ErrHoldExpired            = errors.New("hold expired")
	ErrInvalidDateRange       = errors.New("check-out must be after check-in")
	ErrInvalidTransition      = errors.New("invalid booking transition")
	ErrAlreadyProcessed       = errors.New("refund already processed")
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
	ErrStayTooLong            = errors.New("stay exceeds maximum nights")
	ErrRoomTypeNotFound       = errors.New("room type not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrPolicyNotFound         = errors.New("cancellation policy not found")
	ErrInvalidPolicy          = errors.New("invalid cancellation policy")
	ErrPaymentFailed          = errors.New("payment capture failed")
	ErrOutsideCheckInWindow   = fmt.Errorf("%w: outside check-in window", ErrInvalidTransition)
	ErrNoShowTooEarly         = fmt.Errorf("%w: check-in date has not passed", ErrInvalidTransition)
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrDuplicateBookingCode   = errors.New("booking code already exists")
	ErrInvalidMealPlan        = errors.New("unknown meal plan")
	ErrInvalidPrice           = errors.New("price must not be negative")
	ErrInvalidCapacity        = errors.New("total rooms must not be negative")
	ErrInvalidGuest           = errors.New("guest name and email are required")
)

// TransitionError reports a rejected state machine action.
type TransitionError struct {
	From   models.BookingStatus
	Action models.BookingAction
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s booking in status %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
