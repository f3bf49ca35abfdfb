package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle status of a payment record.
type Status string

const (
	// StatusInitiated is the status of a freshly created record whose outcome
	// is not yet known.
	StatusInitiated Status = "INITIATED"

	// StatusSucceeded means the processor confirmed the charge. Terminal.
	StatusSucceeded Status = "SUCCEEDED"

	// StatusFailed means the charge failed or the intent was canceled. Terminal.
	StatusFailed Status = "FAILED"

	// StatusRequiresAction means the processor needs further customer action
	// (3DS challenge, additional confirmation).
	StatusRequiresAction Status = "REQUIRES_ACTION"
)

// IsTerminal returns true for statuses that never change again.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to target is a legal
// lifecycle transition. Terminal states admit no transitions.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return false
	}
	switch s {
	case StatusInitiated:
		return target == StatusSucceeded || target == StatusFailed || target == StatusRequiresAction
	case StatusRequiresAction:
		return target == StatusSucceeded || target == StatusFailed
	default:
		return false
	}
}

// Provider identifies the payment processor behind a record.
type Provider string

const (
	ProviderMock   Provider = "MOCK"
	ProviderStripe Provider = "STRIPE"
)

// StripeDetails holds the processor-side identifiers of a stripe payment.
// PaymentIntentID is immutable once set; ClientSecret may be refreshed when
// the live intent is re-retrieved.
type StripeDetails struct {
	PaymentIntentID string `json:"payment_intent_id,omitempty" gorm:"column:stripe_payment_intent_id;default:''"`
	ClientSecret    string `json:"client_secret,omitempty" gorm:"column:stripe_client_secret;default:''"`
}

// Payment is the append-only record of one payment attempt against an order.
//
// The partial unique index keeps at most one live stripe intent per order:
// failed records and records without an intent id (mock payments) do not
// block a new attempt.
type Payment struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index:idx_payments_live_intent,unique,where:stripe_payment_intent_id <> '' AND status <> 'FAILED'"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency  string          `json:"currency" gorm:"default:usd"`
	Provider  Provider        `json:"provider" gorm:"not null;index:idx_payments_live_intent,unique,where:stripe_payment_intent_id <> '' AND status <> 'FAILED'"`
	Status    Status          `json:"status" gorm:"not null;default:INITIATED"`
	Stripe    StripeDetails   `json:"stripe,omitempty" gorm:"embedded"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name.
func (Payment) TableName() string {
	return "payments"
}

// HasIntent returns true when a processor intent has been created for this
// record.
func (p *Payment) HasIntent() bool {
	return p.Stripe.PaymentIntentID != ""
}

// StripeWebhookEvent records a processed (or in-flight) webhook delivery.
// The unique event id is what makes at-least-once delivery safe.
type StripeWebhookEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	EventID   string    `json:"event_id" gorm:"uniqueIndex;not null"`
	EventType string    `json:"event_type" gorm:"not null"`
	Processed bool      `json:"processed" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (StripeWebhookEvent) TableName() string {
	return "stripe_webhook_events"
}
