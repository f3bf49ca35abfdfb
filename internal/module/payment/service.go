package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/omnistore/server/internal/module/payment/provider"
	"github.com/omnistore/server/internal/shared/events"
	"github.com/omnistore/server/internal/shared/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options tune the payment engine.
type Options struct {
	// MockSuccessRate is used only when no OutcomeSource is injected.
	MockSuccessRate float64
	// IntentLockTTL bounds the per-order creation lock.
	IntentLockTTL time.Duration
	// Currency is the settlement currency for new intents.
	Currency string
}

// Service implements the payment lifecycle: mock settlement, idempotent
// intent creation, synchronous confirmation and webhook reconciliation.
type Service struct {
	repo      Repository
	orders    OrderAccessor
	gateway   provider.Gateway
	outcome   OutcomeSource
	locker    Locker
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger

	lockTTL  time.Duration
	currency string
}

// NewService creates a new payment service.
func NewService(
	repo Repository,
	orders OrderAccessor,
	gateway provider.Gateway,
	outcome OutcomeSource,
	locker Locker,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts Options,
) *Service {
	if outcome == nil {
		outcome = NewRandomOutcome(opts.MockSuccessRate)
	}
	lockTTL := opts.IntentLockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	currency := opts.Currency
	if currency == "" {
		currency = "usd"
	}

	return &Service{
		repo:      repo,
		orders:    orders,
		gateway:   gateway,
		outcome:   outcome,
		locker:    locker,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		lockTTL:   lockTTL,
		currency:  currency,
	}
}

// MockPay runs a payment against the built-in mock processor. The outcome is
// drawn from the outcome source, the record is persisted once with its final
// status, and a successful outcome settles the order before returning.
func (s *Service) MockPay(ctx context.Context, orderID uuid.UUID) (*Payment, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	payment := &Payment{
		ID:       uuid.New(),
		OrderID:  order.ID,
		Amount:   order.Total,
		Currency: order.Currency,
		Provider: ProviderMock,
		Status:   StatusInitiated,
	}

	if s.outcome.Succeeds() {
		payment.Status = StatusSucceeded
	} else {
		payment.Status = StatusFailed
	}

	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	if payment.Status == StatusSucceeded {
		if err := s.orders.MarkAsPaid(ctx, order.ID); err != nil {
			return nil, fmt.Errorf("settle order: %w", err)
		}
		s.publishSucceeded(payment)
	} else {
		s.publishFailed(payment)
	}

	s.metrics.RecordPayment(string(ProviderMock), string(payment.Status))
	s.logger.Info("mock payment processed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(payment.Status)),
	)
	return payment, nil
}

// CreateIntent creates (or returns) the stripe payment intent for an order.
// Repeated calls for the same order return the same intent id; only the
// client secret is refreshed from the live intent.
func (s *Service) CreateIntent(ctx context.Context, orderID uuid.UUID) (*Payment, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Serialize check-then-create per order. The unique index is the backstop
	// if the lock expires mid-flight.
	release, err := s.locker.Acquire(ctx, intentLockKey(order.ID), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentInProgress, err)
	}
	defer release()

	existing, err := s.repo.GetLivePayment(ctx, order.ID, ProviderStripe)
	switch {
	case err == nil && existing.HasIntent():
		return s.refreshIntent(ctx, existing)
	case err != nil && !errors.Is(err, ErrPaymentNotFound):
		return nil, err
	}

	return s.createIntent(ctx, order)
}

func (s *Service) refreshIntent(ctx context.Context, payment *Payment) (*Payment, error) {
	start := time.Now()
	intent, err := s.gateway.GetPaymentIntent(ctx, payment.Stripe.PaymentIntentID)
	s.metrics.RecordGatewayCall("get_intent", time.Since(start))
	if err != nil {
		return nil, err
	}

	// Only the client secret is written back. Status belongs to
	// TransitionStatus, so a webhook landing mid-refresh is never clobbered
	// by a stale full-record save.
	if err := s.repo.UpdateClientSecret(ctx, payment.ID, intent.ClientSecret); err != nil {
		return nil, err
	}

	refreshed, err := s.repo.GetPayment(ctx, payment.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reused existing payment intent",
		zap.String("payment_id", refreshed.ID.String()),
		zap.String("intent_id", intent.ID),
	)
	return refreshed, nil
}

func (s *Service) createIntent(ctx context.Context, order *OrderInfo) (*Payment, error) {
	start := time.Now()
	intent, err := s.gateway.CreatePaymentIntent(ctx, minorUnits(order.Total), s.currency, map[string]string{
		"order_id": order.ID.String(),
	})
	s.metrics.RecordGatewayCall("create_intent", time.Since(start))
	if err != nil {
		return nil, err
	}

	payment := &Payment{
		ID:       uuid.New(),
		OrderID:  order.ID,
		Amount:   order.Total,
		Currency: s.currency,
		Provider: ProviderStripe,
		Status:   statusFromIntent(intent.Status),
		Stripe: StripeDetails{
			PaymentIntentID: intent.ID,
			ClientSecret:    intent.ClientSecret,
		},
	}

	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			// A concurrent writer won the race; adopt its record.
			return s.repo.GetLivePayment(ctx, order.ID, ProviderStripe)
		}
		return nil, err
	}

	s.metrics.RecordPayment(string(ProviderStripe), string(payment.Status))
	s.logger.Info("created payment intent",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("intent_id", intent.ID),
	)
	return payment, nil
}

// Confirm reconciles the local record with the live processor state of the
// given intent. A terminal local record is left untouched.
func (s *Service) Confirm(ctx context.Context, intentID string) (*Payment, error) {
	start := time.Now()
	intent, err := s.gateway.GetPaymentIntent(ctx, intentID)
	s.metrics.RecordGatewayCall("get_intent", time.Since(start))
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}

	target, mapped := mappedStatus(intent.Status)
	if !mapped || !payment.Status.CanTransitionTo(target) {
		// Unmapped processor status or terminal/no-op local state: the record
		// is already authoritative.
		return payment, nil
	}

	moved, err := s.repo.TransitionStatus(ctx, payment.ID, target)
	if err != nil {
		return nil, err
	}
	if !moved {
		// A concurrent confirm or webhook got there first.
		return s.repo.GetPayment(ctx, payment.ID)
	}
	payment.Status = target

	switch target {
	case StatusSucceeded:
		if err := s.orders.MarkAsPaid(ctx, payment.OrderID); err != nil {
			return nil, fmt.Errorf("settle order: %w", err)
		}
		s.publishSucceeded(payment)
	case StatusFailed:
		s.publishFailed(payment)
	}

	s.metrics.RecordPayment(string(ProviderStripe), string(target))
	s.logger.Info("payment confirmed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("intent_id", intentID),
		zap.String("status", string(target)),
	)
	return payment, nil
}

// HandlePaymentSucceeded reconciles a payment_intent.succeeded webhook.
// An unknown intent id is acknowledged without effect: the processor may
// deliver events for intents created outside this system.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, intentID string) error {
	payment, err := s.repo.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			s.logger.Warn("webhook for unknown intent", zap.String("intent_id", intentID))
			return nil
		}
		return err
	}

	moved, err := s.repo.TransitionStatus(ctx, payment.ID, StatusSucceeded)
	if err != nil {
		return err
	}
	if moved {
		payment.Status = StatusSucceeded
		s.publishSucceeded(payment)
		s.metrics.RecordPayment(string(payment.Provider), string(StatusSucceeded))
	} else {
		// The transition was refused: the record already reached SUCCEEDED
		// (redelivery, or a crash between transition and settlement), or it
		// is terminally FAILED. Only a SUCCEEDED record may settle the order.
		current, err := s.repo.GetPayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		if current.Status != StatusSucceeded {
			s.logger.Warn("succeeded webhook for terminal record",
				zap.String("payment_id", payment.ID.String()),
				zap.String("status", string(current.Status)),
			)
			return nil
		}
	}

	// Settlement is idempotent; drive it even on a redelivered event so a
	// crash between transition and settlement heals on retry.
	if err := s.orders.MarkAsPaid(ctx, payment.OrderID); err != nil {
		return fmt.Errorf("settle order: %w", err)
	}
	return nil
}

// HandlePaymentFailed reconciles a payment_intent.payment_failed webhook.
func (s *Service) HandlePaymentFailed(ctx context.Context, intentID string) error {
	payment, err := s.repo.GetPaymentByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			s.logger.Warn("webhook for unknown intent", zap.String("intent_id", intentID))
			return nil
		}
		return err
	}

	moved, err := s.repo.TransitionStatus(ctx, payment.ID, StatusFailed)
	if err != nil {
		return err
	}
	if moved {
		payment.Status = StatusFailed
		s.publishFailed(payment)
		s.metrics.RecordPayment(string(payment.Provider), string(StatusFailed))
	}
	return nil
}

// GetPayment returns a payment by id.
func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

// ListPaymentsByOrder returns the audit trail of payment attempts for an
// order, newest first.
func (s *Service) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	return s.repo.ListPaymentsByOrder(ctx, orderID)
}

// VerifyWebhookSignature checks a webhook payload signature.
func (s *Service) VerifyWebhookSignature(payload []byte, signature string) error {
	if err := s.gateway.VerifyWebhookSignature(payload, signature); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}
	return nil
}

// RecordWebhookEvent stores a webhook delivery for dedup.
func (s *Service) RecordWebhookEvent(ctx context.Context, eventID, eventType string) error {
	return s.repo.CreateWebhookEvent(ctx, &StripeWebhookEvent{
		EventID:   eventID,
		EventType: eventType,
	})
}

// GetWebhookEvent returns a stored webhook event by id.
func (s *Service) GetWebhookEvent(ctx context.Context, eventID string) (*StripeWebhookEvent, error) {
	return s.repo.GetWebhookEvent(ctx, eventID)
}

// MarkWebhookEventProcessed flags a stored webhook event as handled.
func (s *Service) MarkWebhookEventProcessed(ctx context.Context, eventID string) error {
	return s.repo.MarkWebhookEventProcessed(ctx, eventID)
}

func (s *Service) publishSucceeded(p *Payment) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.NewPaymentSucceededEvent(
		p.ID, p.OrderID, p.Amount, p.Currency, string(p.Provider),
	))
}

func (s *Service) publishFailed(p *Payment) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.NewPaymentFailedEvent(p.ID, p.OrderID, string(p.Provider)))
}

// mappedStatus maps a processor intent status onto the local lifecycle.
// Statuses outside the mapping (processing, requires_payment_method, ...)
// leave the local record unchanged.
func mappedStatus(intentStatus string) (Status, bool) {
	switch intentStatus {
	case "succeeded":
		return StatusSucceeded, true
	case "requires_action", "requires_confirmation":
		return StatusRequiresAction, true
	case "canceled":
		return StatusFailed, true
	default:
		return "", false
	}
}

// statusFromIntent is the creation-time variant of mappedStatus: an unmapped
// processor status starts the record at INITIATED.
func statusFromIntent(intentStatus string) Status {
	if st, ok := mappedStatus(intentStatus); ok {
		return st
	}
	return StatusInitiated
}

// minorUnits converts a decimal amount to processor minor units (cents).
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func intentLockKey(orderID uuid.UUID) string {
	return "payment:intent:" + orderID.String()
}
