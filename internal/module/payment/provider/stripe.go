package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

// StripeGateway implements the Gateway interface for Stripe.
// Credentials are injected at construction; nothing is read from
// process-wide state.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
}

// NewStripeGateway creates a new Stripe gateway.
func NewStripeGateway(cfg *StripeConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		timeout:       timeout,
	}
}

// Name returns the provider name.
func (g *StripeGateway) Name() string {
	return "stripe"
}

// CreatePaymentIntent creates a new PaymentIntent.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeErr("create payment intent", err)
	}

	return mapIntent(pi), nil
}

// GetPaymentIntent retrieves a PaymentIntent.
func (g *StripeGateway) GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}

	pi, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, wrapStripeErr("get payment intent", err)
	}

	return mapIntent(pi), nil
}

// VerifyWebhookSignature verifies a Stripe webhook signature.
func (g *StripeGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	if _, err := webhook.ConstructEvent(payload, signature, g.webhookSecret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// --- Helpers ---

func mapIntent(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
	if pi.Metadata != nil {
		intent.Metadata = pi.Metadata
	}
	return intent
}

func wrapStripeErr(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrIntentNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrGateway, err)
}
