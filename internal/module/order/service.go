package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/omnistore/server/internal/shared/errors"
	"github.com/omnistore/server/internal/shared/metrics"
	"github.com/omnistore/server/internal/shared/random"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service implements order operations.
type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  logger,
	}
}

// CreateOrder creates a pending order for the given total.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, total decimal.Decimal, currency string) (*Order, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.BadRequest("order total must be positive")
	}

	order := &Order{
		ID:       uuid.New(),
		OrderNo:  generateOrderNo(),
		UserID:   userID,
		Status:   StatusPending,
		Total:    total,
		Currency: currency,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns an order by ID.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// MarkAsPaid settles an order. It is idempotent: settling an already-paid
// order is a no-op. Every settlement path (mock, confirm, webhook) goes
// through here so the at-most-once invariant lives in one place.
func (s *Service) MarkAsPaid(ctx context.Context, orderID uuid.UUID) error {
	settled, err := s.repo.SettlePaid(ctx, orderID, time.Now())
	if err != nil {
		return err
	}
	if !settled {
		// Either the order does not exist or it is already paid.
		if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
			return err
		}
		s.logger.Debug("order already settled", zap.String("order_id", orderID.String()))
		return nil
	}

	s.metrics.RecordOrderSettled()
	s.logger.Info("order settled", zap.String("order_id", orderID.String()))
	return nil
}

func generateOrderNo() string {
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), random.UpperAlphaNum(5))
}
