package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID                   int64           `json:"id"`
	Code                 string          `json:"code"`
	Status               BookingStatus   `json:"status"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
	SessionID            string          `json:"session_id,omitempty"`
	GuestName            string          `json:"guest_name"`
	GuestEmail           string          `json:"guest_email"`
	GuestPhone           string          `json:"guest_phone,omitempty"`
	CheckIn              time.Time       `json:"check_in"`
	CheckOut             time.Time       `json:"check_out"`
	Adults               int             `json:"adults"`
	MealPlan             MealPlan        `json:"meal_plan"`
	Rooms                []BookingRoom   `json:"rooms"`
	RoomSubtotal         decimal.Decimal `json:"room_subtotal"`
	MealTotal            decimal.Decimal `json:"meal_total"`
	ExtrasTotal          decimal.Decimal `json:"extras_total"`
	TaxRate              decimal.Decimal `json:"tax_rate"`
	TaxAmount            decimal.Decimal `json:"tax_amount"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	PaymentReference     string          `json:"payment_reference,omitempty"`
	CancellationPolicyID *int64          `json:"cancellation_policy_id,omitempty"`
	CancellationReason   string          `json:"cancellation_reason,omitempty"`
	RefundStatus         RefundStatus    `json:"refund_status"`
	RefundAmount         decimal.Decimal `json:"refund_amount"`
	RefundReference      string          `json:"refund_reference,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	ConfirmedAt          *time.Time      `json:"confirmed_at,omitempty"`
	CheckedInAt          *time.Time      `json:"checked_in_at,omitempty"`
	CheckedOutAt         *time.Time      `json:"checked_out_at,omitempty"`
	CancelledAt          *time.Time      `json:"cancelled_at,omitempty"`
	RefundedAt           *time.Time      `json:"refunded_at,omitempty"`
	Version              int64           `json:"version"`
}

// BookingRoom is a room-type line item. UnitPrice is the stay price of one room.
type BookingRoom struct {
	ID         int64           `json:"id"`
	BookingID  int64           `json:"booking_id"`
	RoomTypeID int64           `json:"room_type_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// PaymentCapture is supplied by a gateway adapter before Pending -> Confirmed.
type PaymentCapture struct {
	Success   bool            `json:"success"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
}

// RefundResult is supplied by a gateway adapter after a refund attempt.
type RefundResult struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference"`
	Message   string `json:"message,omitempty"`
}
