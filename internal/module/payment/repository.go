package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for payment data access.
type Repository interface {
	// CreatePayment inserts a new payment record. Returns ErrDuplicatePayment
	// when the live-intent uniqueness constraint rejects the insert.
	CreatePayment(ctx context.Context, payment *Payment) error

	// GetPayment returns a payment by id or ErrPaymentNotFound.
	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)

	// GetPaymentByIntentID returns the payment holding the given processor
	// intent id, or ErrPaymentNotFound.
	GetPaymentByIntentID(ctx context.Context, intentID string) (*Payment, error)

	// GetLivePayment returns the non-failed record for (orderID, provider),
	// or ErrPaymentNotFound when none exists.
	GetLivePayment(ctx context.Context, orderID uuid.UUID, provider Provider) (*Payment, error)

	// UpdateClientSecret persists a refreshed client secret. No other field
	// is touched; status changes go through TransitionStatus.
	UpdateClientSecret(ctx context.Context, id uuid.UUID, clientSecret string) error

	// TransitionStatus moves a payment to target only when its current status
	// admits the transition. Returns true when this call performed the move.
	TransitionStatus(ctx context.Context, id uuid.UUID, target Status) (bool, error)

	// ListPaymentsByOrder returns all payment records for an order, newest
	// first.
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error)

	// CreateWebhookEvent records a webhook delivery. Returns
	// ErrWebhookEventExists when the event id was seen before.
	CreateWebhookEvent(ctx context.Context, event *StripeWebhookEvent) error

	// GetWebhookEvent returns a recorded event by its processor event id.
	GetWebhookEvent(ctx context.Context, eventID string) (*StripeWebhookEvent, error)

	// MarkWebhookEventProcessed flags a recorded event as fully handled.
	MarkWebhookEventProcessed(ctx context.Context, eventID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreatePayment(ctx context.Context, payment *Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *repository) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &payment, nil
}

func (r *repository) GetPaymentByIntentID(ctx context.Context, intentID string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		First(&payment, "stripe_payment_intent_id = ?", intentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment by intent: %w", err)
	}
	return &payment, nil
}

func (r *repository) GetLivePayment(ctx context.Context, orderID uuid.UUID, provider Provider) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND provider = ? AND status <> ?", orderID, provider, StatusFailed).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get live payment: %w", err)
	}
	return &payment, nil
}

func (r *repository) UpdateClientSecret(ctx context.Context, id uuid.UUID, clientSecret string) error {
	err := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ?", id).
		Update("stripe_client_secret", clientSecret).Error
	if err != nil {
		return fmt.Errorf("update client secret: %w", err)
	}
	return nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, target Status) (bool, error) {
	// Conditional write mirrors Status.CanTransitionTo: terminal states are
	// never left, and self-transitions are no-ops. The losing side of a
	// confirm/webhook race observes RowsAffected == 0.
	allowed := allowedSources(target)
	if len(allowed) == 0 {
		return false, fmt.Errorf("transition status: no path to %s", target)
	}

	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status IN ?", id, allowed).
		Update("status", target)
	if res.Error != nil {
		return false, fmt.Errorf("transition status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	var payments []Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (r *repository) CreateWebhookEvent(ctx context.Context, event *StripeWebhookEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrWebhookEventExists
		}
		return fmt.Errorf("create webhook event: %w", err)
	}
	return nil
}

func (r *repository) GetWebhookEvent(ctx context.Context, eventID string) (*StripeWebhookEvent, error) {
	var event StripeWebhookEvent
	err := r.db.WithContext(ctx).First(&event, "event_id = ?", eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebhookEventNotFound
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return &event, nil
}

func (r *repository) MarkWebhookEventProcessed(ctx context.Context, eventID string) error {
	err := r.db.WithContext(ctx).
		Model(&StripeWebhookEvent{}).
		Where("event_id = ?", eventID).
		Update("processed", true).Error
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

func allowedSources(target Status) []Status {
	var sources []Status
	for _, s := range []Status{StatusInitiated, StatusSucceeded, StatusFailed, StatusRequiresAction} {
		if s.CanTransitionTo(target) {
			sources = append(sources, s)
		}
	}
	return sources
}
