package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/tomoca-dev/Tomo-web/cart-service/internal/domain"
)

// Storage persists the full item collection of one cart under a key.
type Storage interface {
	Load(ctx context.Context, key string) ([]domain.LineItem, error)
	Save(ctx context.Context, key string, items []domain.LineItem) error
	Delete(ctx context.Context, key string) error
}

var (
	ErrNotFound = errors.New("cart not found in storage")
	// ErrCorrupt marks stored data that can never be decoded.
	ErrCorrupt = errors.New("stored cart is corrupt")
)

// MemoryStorage keeps carts in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	carts map[string][]domain.LineItem
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{carts: make(map[string][]domain.LineItem)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) ([]domain.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, ok := m.carts[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out, nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, items []domain.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]domain.LineItem, len(items))
	copy(stored, items)
	m.carts[key] = stored
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, key)
	return nil
}
