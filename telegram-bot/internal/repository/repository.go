package repository

import (
	"context"
	"errors"

	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
)

type CatalogRepository interface {
	// ListActiveByCategory returns active products of a category ordered by name.
	ListActiveByCategory(ctx context.Context, category string) ([]domain.Product, error)
	// GetActiveProduct returns ErrProductNotFound for missing or inactive products.
	GetActiveProduct(ctx context.Context, id string) (*domain.Product, error)
}

// OrderRepository writes are independent calls; nothing spans an order and
// its items in one transaction.
type OrderRepository interface {
	CreateOrder(ctx context.Context, telegramUserID string) (*domain.Order, error)
	AddOrderItem(ctx context.Context, item domain.OrderItem) error
	// LatestOrderForUser returns ErrOrderNotFound when the user has no orders.
	LatestOrderForUser(ctx context.Context, telegramUserID string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error
}

type Repository interface {
	CatalogRepository
	OrderRepository
}
