package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/domain"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/service"
)

// CartService is the part of service.CartService the handlers need.
type CartService interface {
	Cart(ctx context.Context, sessionID string) (*service.CartStore, error)
	Checkout(ctx context.Context, sessionID string, customer service.Customer) (*service.Receipt, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type LineItemDTO struct {
	ProductID   string          `json:"product_id"`
	VariantID   string          `json:"variant_id,omitempty"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"image_url,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	VariantName string          `json:"variant_name,omitempty"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	Items     []LineItemDTO   `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type AddItemRequestDTO struct {
	ProductID   string              `json:"product_id"`
	VariantID   string              `json:"variant_id"`
	Name        string              `json:"name"`
	ImageURL    string              `json:"image_url"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Quantity    int                 `json:"quantity"`
	VariantName string              `json:"variant_name"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SetVariantRequestDTO struct {
	VariantID   string              `json:"new_variant_id"`
	VariantName string              `json:"variant_name"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
}

type CheckoutRequestDTO struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type ReceiptResponse struct {
	CartResponse
	Customer CheckoutRequestDTO `json:"customer"`
	PlacedAt time.Time          `json:"placed_at"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	respondJSON(w, r, http.StatusOK, toCartResponse(store.View()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_name", "name is required")
		return
	}
	if !validPrice(req.UnitPrice) {
		respondError(w, r, http.StatusBadRequest, "invalid_price", "unit_price must be a non-negative number")
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store.AddItem(ctx, domain.LineItem{
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
		Name:        req.Name,
		ImageURL:    req.ImageURL,
		UnitPrice:   req.UnitPrice.Decimal,
		VariantName: req.VariantName,
	}, req.Quantity)

	respondJSON(w, r, http.StatusCreated, toCartResponse(store.View()))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store.SetQuantity(ctx, keyFromRequest(r), req.Quantity)
	respondJSON(w, r, http.StatusOK, toCartResponse(store.View()))
}

func (h *CartHandler) SetVariant(w http.ResponseWriter, r *http.Request) {
	var req SetVariantRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !validPrice(req.UnitPrice) {
		respondError(w, r, http.StatusBadRequest, "invalid_price", "unit_price must be a non-negative number")
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store.SetVariant(ctx, keyFromRequest(r), req.VariantID, req.VariantName, req.UnitPrice.Decimal)
	respondJSON(w, r, http.StatusOK, toCartResponse(store.View()))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store.RemoveItem(ctx, keyFromRequest(r))
	respondJSON(w, r, http.StatusOK, toCartResponse(store.View()))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store.Clear(ctx)
	respondJSON(w, r, http.StatusOK, toCartResponse(store.View()))
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	receipt, err := h.carts.Checkout(ctx, sessionFromContext(r.Context()), service.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, ReceiptResponse{
		CartResponse: toCartResponse(receipt.View),
		Customer: CheckoutRequestDTO{
			Name:    receipt.Customer.Name,
			Phone:   receipt.Customer.Phone,
			Address: receipt.Customer.Address,
		},
		PlacedAt: receipt.PlacedAt,
	})
}

func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*service.CartStore, bool) {
	store, err := h.carts.Cart(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	return store, true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, r, http.StatusBadRequest, "cart_empty", err.Error())
	case errors.Is(err, service.ErrInvalidCustomer):
		respondError(w, r, http.StatusBadRequest, "invalid_customer", err.Error())
	case errors.Is(err, service.ErrMissingSession):
		respondError(w, r, http.StatusBadRequest, "missing_session", err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("cart load failed")
		respondError(w, r, http.StatusServiceUnavailable, "storage_unavailable", "cart storage unavailable, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("cart request failed")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func keyFromRequest(r *http.Request) domain.Key {
	return domain.Key{
		ProductID: chi.URLParam(r, "product_id"),
		VariantID: r.URL.Query().Get("variant_id"),
	}
}

func validPrice(p decimal.NullDecimal) bool {
	return p.Valid && !p.Decimal.IsNegative()
}

func toCartResponse(v service.View) CartResponse {
	items := make([]LineItemDTO, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, LineItemDTO{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Name:        it.Name,
			ImageURL:    it.ImageURL,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			VariantName: it.VariantName,
			LineTotal:   it.LineTotal(),
		})
	}
	return CartResponse{
		Items:     items,
		ItemCount: v.ItemCount,
		Subtotal:  v.Subtotal,
	}
}
