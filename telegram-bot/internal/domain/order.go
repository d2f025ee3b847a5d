package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

type Order struct {
	ID             string      `json:"id" db:"id"`
	TelegramUserID string      `json:"telegram_user_id" db:"telegram_user_id"`
	Status         OrderStatus `json:"status" db:"status"`
	Phone          *string     `json:"phone" db:"phone"`
	Address        *string     `json:"address" db:"address"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// IsComplete reports whether the order has everything needed for delivery.
func (o Order) IsComplete() bool {
	return o.Status == OrderStatusConfirmed && o.Address != nil && *o.Address != ""
}

// OrderItem price is the product price at the time the order was placed.
type OrderItem struct {
	OrderID   string          `json:"order_id" db:"order_id"`
	ProductID string          `json:"product_id" db:"product_id"`
	Qty       int             `json:"qty" db:"qty"`
	Price     decimal.Decimal `json:"price" db:"price"`
}

// OrderPatch updates only the non-nil fields.
type OrderPatch struct {
	Phone   *string      `json:"phone,omitempty"`
	Address *string      `json:"address,omitempty"`
	Status  *OrderStatus `json:"status,omitempty"`
}

func (p OrderPatch) IsEmpty() bool {
	return p.Phone == nil && p.Address == nil && p.Status == nil
}
