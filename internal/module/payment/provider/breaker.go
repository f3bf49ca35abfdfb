package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig contains circuit breaker configuration.
type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
	}
}

// CircuitGateway decorates a Gateway with a circuit breaker so a degraded
// processor sheds load fast instead of tying up request workers.
type CircuitGateway struct {
	inner Gateway
	cb    *gobreaker.CircuitBreaker[*Intent]
}

// NewCircuitGateway creates a circuit-breaking gateway around inner.
func NewCircuitGateway(inner Gateway, cfg *BreakerConfig) *CircuitGateway {
	if cfg == nil {
		cfg = DefaultBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// An unknown intent id is a caller problem, not a processor outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrIntentNotFound)
		},
	}

	return &CircuitGateway{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*Intent](settings),
	}
}

// Name returns the inner provider name.
func (g *CircuitGateway) Name() string {
	return g.inner.Name()
}

// CreatePaymentIntent creates an intent through the breaker.
func (g *CircuitGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	intent, err := g.cb.Execute(func() (*Intent, error) {
		return g.inner.CreatePaymentIntent(ctx, amount, currency, metadata)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return intent, nil
}

// GetPaymentIntent retrieves an intent through the breaker.
func (g *CircuitGateway) GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	intent, err := g.cb.Execute(func() (*Intent, error) {
		return g.inner.GetPaymentIntent(ctx, intentID)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return intent, nil
}

// VerifyWebhookSignature verifies locally; no outbound call, no breaker.
func (g *CircuitGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	return g.inner.VerifyWebhookSignature(payload, signature)
}

// State returns the current breaker state.
func (g *CircuitGateway) State() gobreaker.State {
	return g.cb.State()
}

func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return err
}
