package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Categories offered in the bot's category menu, in display order.
var Categories = []string{"coffee", "accessories", "other"}

type Product struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	ImageURL    *string         `json:"image_url" db:"image_url"`
	Description *string         `json:"description" db:"description"`
	Category    *string         `json:"category" db:"category"`
	IsActive    bool            `json:"is_active" db:"is_active"`
}

func (p Product) Image() string {
	if p.ImageURL == nil {
		return ""
	}
	return *p.ImageURL
}

func (p Product) Details() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// DeepLink opens the bot with the product preselected.
func DeepLink(botUsername, productID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", url.PathEscape(botUsername), url.QueryEscape(DeepLinkPayload(productID)))
}

// DeepLinkPrefix starts the /start payload of a product deep link.
const DeepLinkPrefix = "product_"

func DeepLinkPayload(productID string) string {
	return DeepLinkPrefix + productID
}

// ParseDeepLink extracts the product id from a /start payload.
func ParseDeepLink(payload string) (string, bool) {
	id, ok := strings.CutPrefix(payload, DeepLinkPrefix)
	return id, ok
}
