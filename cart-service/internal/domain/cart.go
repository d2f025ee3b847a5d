package domain

import "github.com/shopspring/decimal"

// Key identifies a cart line. An empty VariantID means the product was added
// without a variant.
type Key struct {
	ProductID string
	VariantID string
}

func (k Key) String() string {
	return k.ProductID + "::" + k.VariantID
}

// LineItem is one entry of the cart. JSON names follow the browser format so
// carts written by the web client decode as-is.
type LineItem struct {
	ProductID   string          `json:"productId"`
	VariantID   string          `json:"variantId,omitempty"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	VariantName string          `json:"variantName,omitempty"`
}

func (i LineItem) Key() Key {
	return Key{ProductID: i.ProductID, VariantID: i.VariantID}
}

func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an ordered collection of line items with unique keys.
// The zero value is an empty cart.
type Cart struct {
	Items []LineItem `json:"items"`
}

// Add merges item into the cart. Quantities below 1 are treated as 1.
func (c *Cart) Add(item LineItem, quantity int) {
	quantity = clampQuantity(quantity)
	if idx := c.indexOf(item.Key()); idx >= 0 {
		c.Items[idx].Quantity += quantity
		return
	}
	item.Quantity = quantity
	c.Items = append(c.Items, item)
}

// Remove reports whether an entry with key existed.
func (c *Cart) Remove(key Key) bool {
	idx := c.indexOf(key)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

// SetQuantity never removes an entry: quantities below 1 become 1.
func (c *Cart) SetQuantity(key Key, quantity int) bool {
	idx := c.indexOf(key)
	if idx < 0 {
		return false
	}
	c.Items[idx].Quantity = clampQuantity(quantity)
	return true
}

// SetVariant re-keys the entry at key to a different variant of the same
// product. If the product already has a line for that variant, the quantities
// are merged into it.
func (c *Cart) SetVariant(key Key, variantID, variantName string, unitPrice decimal.Decimal) bool {
	idx := c.indexOf(key)
	if idx < 0 {
		return false
	}

	target := Key{ProductID: key.ProductID, VariantID: variantID}
	if target != key {
		if dst := c.indexOf(target); dst >= 0 {
			c.Items[dst].Quantity += c.Items[idx].Quantity
			c.Items[dst].VariantName = variantName
			c.Items[dst].UnitPrice = unitPrice
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			return true
		}
	}

	c.Items[idx].VariantID = variantID
	c.Items[idx].VariantName = variantName
	c.Items[idx].UnitPrice = unitPrice
	return true
}

func (c *Cart) Clear() {
	c.Items = nil
}

// ItemCount is the sum of quantities, not the number of lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Snapshot returns a copy that is safe to hand out while the cart mutates.
func (c *Cart) Snapshot() []LineItem {
	out := make([]LineItem, len(c.Items))
	copy(out, c.Items)
	return out
}

func (c *Cart) indexOf(key Key) int {
	for i, it := range c.Items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

func clampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
