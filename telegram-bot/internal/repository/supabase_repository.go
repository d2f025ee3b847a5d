package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/supabase"
)

const (
	productsTable   = "products"
	ordersTable     = "orders"
	orderItemsTable = "order_items"

	productColumns = "id,name,price,image_url,description,category,is_active"
	orderColumns   = "id,telegram_user_id,status,phone,address,created_at"
)

type SupabaseRepository struct {
	client *supabase.Client
}

func NewSupabaseRepository(client *supabase.Client) *SupabaseRepository {
	return &SupabaseRepository{client: client}
}

func (r *SupabaseRepository) ListActiveByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var products []domain.Product
	err := r.client.From(productsTable).
		Select(productColumns).
		Eq("is_active", true).
		Eq("category", category).
		Order("name", true).
		Execute(ctx, &products)
	if err != nil {
		return nil, fmt.Errorf("list products in %q: %w", category, err)
	}
	return products, nil
}

func (r *SupabaseRepository) GetActiveProduct(ctx context.Context, id string) (*domain.Product, error) {
	var products []domain.Product
	err := r.client.From(productsTable).
		Select(productColumns).
		Eq("id", id).
		Eq("is_active", true).
		Limit(1).
		Execute(ctx, &products)
	if err != nil {
		// a malformed id cannot match any row
		if isInvalidInput(err) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product %q: %w", id, err)
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}
	return &products[0], nil
}

func (r *SupabaseRepository) CreateOrder(ctx context.Context, telegramUserID string) (*domain.Order, error) {
	row := map[string]interface{}{
		"telegram_user_id": telegramUserID,
		"status":           domain.OrderStatusNew,
	}

	var orders []domain.Order
	err := r.client.From(ordersTable).
		Select(orderColumns).
		Insert([]map[string]interface{}{row}).
		Execute(ctx, &orders)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if len(orders) == 0 {
		return nil, errors.New("insert order: no row returned")
	}
	return &orders[0], nil
}

func (r *SupabaseRepository) AddOrderItem(ctx context.Context, item domain.OrderItem) error {
	err := r.client.From(orderItemsTable).
		Insert([]domain.OrderItem{item}).
		Execute(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) LatestOrderForUser(ctx context.Context, telegramUserID string) (*domain.Order, error) {
	var orders []domain.Order
	err := r.client.From(ordersTable).
		Select(orderColumns).
		Eq("telegram_user_id", telegramUserID).
		Order("created_at", false).
		Limit(1).
		Execute(ctx, &orders)
	if err != nil {
		return nil, fmt.Errorf("latest order for %s: %w", telegramUserID, err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

func (r *SupabaseRepository) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	err := r.client.From(ordersTable).
		Update(patch).
		Eq("id", id).
		Execute(ctx, nil)
	if err != nil {
		return fmt.Errorf("update order %s: %w", id, err)
	}
	return nil
}

// isInvalidInput matches PostgreSQL's invalid_text_representation, returned
// when a filter value does not parse as the column type.
func isInvalidInput(err error) bool {
	var apiErr *supabase.Error
	return errors.As(err, &apiErr) && apiErr.Code == "22P02"
}
