package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/domain"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/storage"
)

const (
	loadTimeout    = 2 * time.Second
	persistTimeout = 2 * time.Second
)

// CartStore is the authoritative in-memory cart of one session. Each mutation
// writes the full item collection through to storage; storage failures are
// logged and otherwise ignored.
type CartStore struct {
	mu      sync.Mutex
	key     string
	cart    domain.Cart
	storage storage.Storage
	log     zerolog.Logger
}

// OpenCartStore reads the persisted cart once. Missing or corrupt data
// starts an empty cart. Any other load failure is returned so that an
// unreachable backend never yields an empty cart that would later overwrite
// the stored one.
func OpenCartStore(ctx context.Context, st storage.Storage, key string, log zerolog.Logger) (*CartStore, error) {
	s := &CartStore{
		key:     key,
		storage: st,
		log:     log.With().Str("cart_key", key).Logger(),
	}

	// The load outlives the request that triggered it: other callers share
	// its result.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	items, err := st.Load(ctx, key)
	switch {
	case err == nil:
		s.cart.Items = sanitize(items)
	case errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, storage.ErrCorrupt):
		s.log.Warn().Err(err).Msg("stored cart unreadable, starting empty")
	default:
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}
	return s, nil
}

func (s *CartStore) AddItem(ctx context.Context, item domain.LineItem, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Add(item, quantity)
	s.persist(ctx)
}

func (s *CartStore) RemoveItem(ctx context.Context, key domain.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Remove(key)
	s.persist(ctx)
}

func (s *CartStore) SetQuantity(ctx context.Context, key domain.Key, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetQuantity(key, quantity)
	s.persist(ctx)
}

func (s *CartStore) SetVariant(ctx context.Context, key domain.Key, variantID, variantName string, unitPrice decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetVariant(key, variantID, variantName, unitPrice)
	s.persist(ctx)
}

func (s *CartStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.persist(ctx)
}

func (s *CartStore) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

func (s *CartStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}

func (s *CartStore) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Subtotal()
}

// View returns items and both aggregates from one consistent state.
func (s *CartStore) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Items:     s.cart.Snapshot(),
		ItemCount: s.cart.ItemCount(),
		Subtotal:  s.cart.Subtotal(),
	}
}

// persist must be called with mu held. An empty cart drops its key.
func (s *CartStore) persist(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var err error
	if len(s.cart.Items) == 0 {
		err = s.storage.Delete(ctx, s.key)
	} else {
		err = s.storage.Save(ctx, s.key, s.cart.Snapshot())
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("cart persist failed")
	}
}

// sanitize rebuilds a loaded collection through Add so that stored data
// with duplicate keys or bad quantities still yields a valid cart.
func sanitize(items []domain.LineItem) []domain.LineItem {
	var c domain.Cart
	for _, it := range items {
		c.Add(it, it.Quantity)
	}
	return c.Items
}

// View is a read-only snapshot of a cart.
type View struct {
	Items     []domain.LineItem
	ItemCount int
	Subtotal  decimal.Decimal
}
