package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/omnistore/server/internal/shared/events"
	"github.com/shopspring/decimal"
)

// OrderInfo is the slice of an order the payment engine needs.
type OrderInfo struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Total    decimal.Decimal
	Currency string
	Paid     bool
}

// OrderAccessor is the payment engine's view of the order subsystem. The
// concrete implementation lives in the app wiring so the two modules stay
// decoupled.
type OrderAccessor interface {
	// GetOrder returns the order or ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderInfo, error)

	// MarkAsPaid settles the order. Idempotent: settling an already-paid
	// order is a no-op.
	MarkAsPaid(ctx context.Context, orderID uuid.UUID) error
}

// Locker serializes critical sections across processes. Acquire blocks until
// the lock is held or ctx is done; the returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// EventPublisher publishes domain events. The in-process bus implements it.
type EventPublisher interface {
	Publish(event events.Event)
}
