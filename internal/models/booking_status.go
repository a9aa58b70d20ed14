package models

// BookingStatus is the closed set of booking lifecycle states.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusCheckedIn  BookingStatus = "checked_in"
	StatusCheckedOut BookingStatus = "checked_out"
	StatusCancelled  BookingStatus = "cancelled"
	StatusNoShow     BookingStatus = "no_show"
)

// BookingAction names a lifecycle transition request.
type BookingAction string

const (
	ActionConfirm    BookingAction = "confirm"
	ActionCheckIn    BookingAction = "check_in"
	ActionCheckOut   BookingAction = "check_out"
	ActionCancel     BookingAction = "cancel"
	ActionMarkNoShow BookingAction = "mark_no_show"
)

var transitions = map[BookingStatus]map[BookingAction]BookingStatus{
	StatusPending: {
		ActionConfirm: StatusConfirmed,
		ActionCancel:  StatusCancelled,
	},
	StatusConfirmed: {
		ActionCheckIn:    StatusCheckedIn,
		ActionCancel:     StatusCancelled,
		ActionMarkNoShow: StatusNoShow,
	},
	StatusCheckedIn: {
		ActionCheckOut: StatusCheckedOut,
	},
}

// NextStatus looks up the transition table. ok is false when the action is not
// allowed from the given state.
func NextStatus(from BookingStatus, action BookingAction) (BookingStatus, bool) {
	to, ok := transitions[from][action]
	return to, ok
}

func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCheckedOut, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type RefundStatus string

const (
	RefundNone          RefundStatus = "none"
	RefundNotApplicable RefundStatus = "not_applicable"
	RefundPending       RefundStatus = "pending"
	RefundCompleted     RefundStatus = "completed"
	RefundFailed        RefundStatus = "failed"
)
