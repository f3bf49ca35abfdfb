package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the status of an order.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
	StatusFailed   Status = "failed"
)

// Order represents a purchase order.
//
// Only the settlement-relevant slice of the order lives here; catalog, cart
// and shipment data are owned elsewhere.
type Order struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderNo   string          `json:"order_no" gorm:"uniqueIndex;not null"`
	UserID    uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	Status    Status          `json:"status" gorm:"not null;default:pending"`
	Total     decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	Currency  string          `json:"currency" gorm:"default:usd"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// IsPending returns true if the order is pending payment.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// IsPaid returns true if the order has been settled.
func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}
