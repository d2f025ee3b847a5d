package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/storage"
	"golang.org/x/sync/singleflight"
)

const DefaultNamespace = "tomoca_cart_v1"

type Options struct {
	// Namespace prefixes every storage key.
	Namespace string
	// MaxOpenCarts bounds how many session stores stay in memory.
	MaxOpenCarts int
}

// CartService hands out one CartStore per session.
type CartService struct {
	storage   storage.Storage
	namespace string
	open      *lru.Cache[string, *CartStore]
	sfg       singleflight.Group // Prevents concurrent loads of the same session
	log       zerolog.Logger
}

func NewCartService(st storage.Storage, opts Options, log zerolog.Logger) (*CartService, error) {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.MaxOpenCarts <= 0 {
		opts.MaxOpenCarts = 10000
	}

	open, err := lru.New[string, *CartStore](opts.MaxOpenCarts)
	if err != nil {
		return nil, fmt.Errorf("create cart cache: %w", err)
	}

	return &CartService{
		storage:   st,
		namespace: opts.Namespace,
		open:      open,
		log:       log,
	}, nil
}

// Cart returns the store for sessionID, loading it from storage on first use.
func (s *CartService) Cart(ctx context.Context, sessionID string) (*CartStore, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrMissingSession
	}
	if store, ok := s.open.Get(sessionID); ok {
		return store, nil
	}

	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		if store, ok := s.open.Get(sessionID); ok {
			return store, nil
		}
		store, err := OpenCartStore(ctx, s.storage, s.storageKey(sessionID), s.log)
		if err != nil {
			// not cached: the next request retries the load
			return nil, err
		}
		s.open.Add(sessionID, store)
		return store, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return v.(*CartStore), nil
}

func (s *CartService) storageKey(sessionID string) string {
	return s.namespace + ":" + sessionID
}

type Customer struct {
	Name    string
	Phone   string
	Address string
}

type Receipt struct {
	View
	Customer Customer
	PlacedAt time.Time
}

// Checkout is a stub: it snapshots the cart into a receipt and empties it.
// No payment or server-side order is created.
func (s *CartService) Checkout(ctx context.Context, sessionID string, customer Customer) (*Receipt, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = strings.TrimSpace(customer.Phone)
	customer.Address = strings.TrimSpace(customer.Address)
	if customer.Name == "" || customer.Phone == "" {
		return nil, ErrInvalidCustomer
	}

	store, err := s.Cart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	receipt := &Receipt{
		View: View{
			Items:     store.cart.Snapshot(),
			ItemCount: store.cart.ItemCount(),
			Subtotal:  store.cart.Subtotal(),
		},
		Customer: customer,
		PlacedAt: time.Now().UTC(),
	}

	store.cart.Clear()
	store.persist(ctx)

	s.log.Info().
		Str("session_id", sessionID).
		Int("item_count", receipt.ItemCount).
		Str("subtotal", receipt.Subtotal.StringFixed(2)).
		Msg("checkout placed")

	return receipt, nil
}
