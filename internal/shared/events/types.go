package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment event type constants.
const (
	PaymentSucceededType = "PaymentSucceeded"
	PaymentFailedType    = "PaymentFailed"
)

// PaymentSucceededEvent is emitted when a payment reaches SUCCEEDED.
// Defined in the events package to avoid cyclic imports between modules.
type PaymentSucceededEvent struct {
	BaseEvent

	// PaymentID is the unique identifier of the payment.
	PaymentID uuid.UUID `json:"payment_id"`

	// OrderID is the ID of the order this payment settles.
	OrderID uuid.UUID `json:"order_id"`

	// Amount is the payment amount.
	Amount decimal.Decimal `json:"amount"`

	// Currency is the ISO currency code (e.g., "usd").
	Currency string `json:"currency"`

	// Provider is the payment provider name (e.g., "MOCK", "STRIPE").
	Provider string `json:"provider"`
}

// NewPaymentSucceededEvent creates a new PaymentSucceededEvent.
func NewPaymentSucceededEvent(paymentID, orderID uuid.UUID, amount decimal.Decimal, currency, provider string) *PaymentSucceededEvent {
	return &PaymentSucceededEvent{
		BaseEvent: NewBaseEvent(PaymentSucceededType),
		PaymentID: paymentID,
		OrderID:   orderID,
		Amount:    amount,
		Currency:  currency,
		Provider:  provider,
	}
}

// PaymentFailedEvent is emitted when a payment reaches FAILED.
type PaymentFailedEvent struct {
	BaseEvent

	// PaymentID is the unique identifier of the payment.
	PaymentID uuid.UUID `json:"payment_id"`

	// OrderID is the ID of the order this payment was for.
	OrderID uuid.UUID `json:"order_id"`

	// Provider is the payment provider name.
	Provider string `json:"provider"`
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent.
func NewPaymentFailedEvent(paymentID, orderID uuid.UUID, provider string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: NewBaseEvent(PaymentFailedType),
		PaymentID: paymentID,
		OrderID:   orderID,
		Provider:  provider,
	}
}
