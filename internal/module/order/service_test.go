package order

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[uuid.UUID]*Order)}
}

func (r *memRepo) CreateOrder(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memRepo) GetOrder(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) SettlePaid(_ context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status == StatusPaid {
		return false, nil
	}
	o.Status = StatusPaid
	o.PaidAt = &paidAt
	return true, nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, nil, zap.NewNop()), repo
}

func TestCreateOrder(t *testing.T) {
	svc, _ := newTestService()

	order, err := svc.CreateOrder(context.Background(), uuid.New(), decimal.RequireFromString("49.99"), "usd")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, order.Status)
	assert.True(t, order.IsPending())
	assert.True(t, strings.HasPrefix(order.OrderNo, "ORD-"))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("49.99")))
}

func TestCreateOrder_RejectsNonPositiveTotal(t *testing.T) {
	svc, _ := newTestService()

	for _, total := range []string{"0", "-1.50"} {
		_, err := svc.CreateOrder(context.Background(), uuid.New(), decimal.RequireFromString(total), "usd")
		assert.Error(t, err)
	}
}

func TestMarkAsPaid_Idempotent(t *testing.T) {
	svc, repo := newTestService()

	order, err := svc.CreateOrder(context.Background(), uuid.New(), decimal.RequireFromString("10.00"), "usd")
	require.NoError(t, err)

	require.NoError(t, svc.MarkAsPaid(context.Background(), order.ID))
	require.NoError(t, svc.MarkAsPaid(context.Background(), order.ID))

	stored, err := repo.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())
	require.NotNil(t, stored.PaidAt)

	firstPaidAt := *stored.PaidAt
	require.NoError(t, svc.MarkAsPaid(context.Background(), order.ID))
	stored, err = repo.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, firstPaidAt, *stored.PaidAt)
}

func TestMarkAsPaid_UnknownOrder(t *testing.T) {
	svc, _ := newTestService()

	err := svc.MarkAsPaid(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
