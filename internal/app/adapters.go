package app

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/omnistore/server/internal/module/order"
	"github.com/omnistore/server/internal/module/payment"
)

// orderAccessor adapts the order service to the payment engine's view of the
// order subsystem. Error translation happens here so the payment module never
// imports the order module.
type orderAccessor struct {
	orders *order.Service
}

func newOrderAccessor(orders *order.Service) payment.OrderAccessor {
	return &orderAccessor{orders: orders}
}

func (a *orderAccessor) GetOrder(ctx context.Context, orderID uuid.UUID) (*payment.OrderInfo, error) {
	o, err := a.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, payment.ErrOrderNotFound
		}
		return nil, err
	}
	return &payment.OrderInfo{
		ID:       o.ID,
		UserID:   o.UserID,
		Total:    o.Total,
		Currency: o.Currency,
		Paid:     o.IsPaid(),
	}, nil
}

func (a *orderAccessor) MarkAsPaid(ctx context.Context, orderID uuid.UUID) error {
	err := a.orders.MarkAsPaid(ctx, orderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		return payment.ErrOrderNotFound
	}
	return err
}
