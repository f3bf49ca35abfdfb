package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for order data access.
type Repository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	// SettlePaid transitions the order to paid only if it is not paid yet.
	// Returns true when this call performed the transition.
	SettlePaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateOrder(ctx context.Context, order *Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *repository) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (r *repository) SettlePaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	// Conditional write: a concurrent settler loses the race and observes a
	// no-op instead of overwriting paid_at.
	res := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ? AND status <> ?", id, StatusPaid).
		Updates(map[string]interface{}{
			"status":  StatusPaid,
			"paid_at": paidAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("settle order: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
