package provider

import (
	"context"
	"errors"
)

// Gateway errors.
var (
	// ErrGateway indicates a network or processor-side failure. The operation
	// is retryable by the caller; the server performs no retry of its own.
	ErrGateway = errors.New("payment gateway error")

	// ErrIntentNotFound indicates the processor does not know the intent id.
	ErrIntentNotFound = errors.New("payment intent not found")

	// ErrInvalidSignature indicates a webhook payload failed signature
	// verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Intent represents a payment intent as reported by the processor.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	Metadata     map[string]string
}

// Gateway is the capability interface to the external payment processor.
// Implementations are stateless; every method maps to a single outbound call
// with a bounded timeout.
type Gateway interface {
	// Name returns the provider name.
	Name() string

	// CreatePaymentIntent creates a new intent for the given amount in minor
	// units (cents).
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)

	// GetPaymentIntent retrieves the live intent from the processor.
	GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error)

	// VerifyWebhookSignature verifies a webhook payload against its signature
	// header. Returns ErrInvalidSignature on mismatch.
	VerifyWebhookSignature(payload []byte, signature string) error
}
