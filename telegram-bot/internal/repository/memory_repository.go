package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
)

// MemoryRepository implements Repository in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	orders   []*domain.Order // insertion order
	items    []domain.OrderItem
	now      func() time.Time
}

func NewMemoryRepository(products ...domain.Product) *MemoryRepository {
	r := &MemoryRepository{
		products: make(map[string]domain.Product),
		now:      time.Now,
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *MemoryRepository) ListActiveByCategory(_ context.Context, category string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Product
	for _, p := range r.products {
		if p.IsActive && p.Category != nil && *p.Category == category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) GetActiveProduct(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) CreateOrder(_ context.Context, telegramUserID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order := &domain.Order{
		ID:             uuid.NewString(),
		TelegramUserID: telegramUserID,
		Status:         domain.OrderStatusNew,
		CreatedAt:      r.now(),
	}
	r.orders = append(r.orders, order)

	cp := *order
	return &cp, nil
}

func (r *MemoryRepository) AddOrderItem(_ context.Context, item domain.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	return nil
}

// LatestOrderForUser breaks created_at ties by insertion order.
func (r *MemoryRepository) LatestOrderForUser(_ context.Context, telegramUserID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Order
	for _, o := range r.orders {
		if o.TelegramUserID != telegramUserID {
			continue
		}
		if latest == nil || !o.CreatedAt.Before(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, ErrOrderNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryRepository) UpdateOrder(_ context.Context, id string, patch domain.OrderPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.ID != id {
			continue
		}
		if patch.Phone != nil {
			phone := *patch.Phone
			o.Phone = &phone
		}
		if patch.Address != nil {
			addr := *patch.Address
			o.Address = &addr
		}
		if patch.Status != nil {
			o.Status = *patch.Status
		}
	}
	return nil
}

// Orders returns copies of all orders in insertion order.
func (r *MemoryRepository) Orders() []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out
}

func (r *MemoryRepository) OrderItems() []domain.OrderItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.OrderItem(nil), r.items...)
}
