package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	createErr error
	getErr    error
	intent    *Intent
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.intent, nil
}

func (f *fakeGateway) GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.intent, nil
}

func (f *fakeGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	return nil
}

func TestCircuitGateway_PassesThroughSuccess(t *testing.T) {
	inner := &fakeGateway{intent: &Intent{ID: "pi_1", Status: "requires_payment_method"}}
	g := NewCircuitGateway(inner, nil)

	intent, err := g.CreatePaymentIntent(context.Background(), 4999, "usd", nil)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestCircuitGateway_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeGateway{createErr: ErrGateway}
	g := NewCircuitGateway(inner, &BreakerConfig{FailureThreshold: 3, OpenTimeout: 0})

	for i := 0; i < 3; i++ {
		_, err := g.CreatePaymentIntent(context.Background(), 100, "usd", nil)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	// While open, calls fail fast with a gateway error.
	_, err := g.CreatePaymentIntent(context.Background(), 100, "usd", nil)
	assert.True(t, errors.Is(err, ErrGateway))
}

func TestCircuitGateway_IntentNotFoundDoesNotTrip(t *testing.T) {
	inner := &fakeGateway{getErr: ErrIntentNotFound}
	g := NewCircuitGateway(inner, &BreakerConfig{FailureThreshold: 2, OpenTimeout: 0})

	for i := 0; i < 5; i++ {
		_, err := g.GetPaymentIntent(context.Background(), "pi_unknown")
		assert.True(t, errors.Is(err, ErrIntentNotFound))
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
}
