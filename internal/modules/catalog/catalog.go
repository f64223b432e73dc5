// Package catalog manages the product listings sold by vendors.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is a purchasable listing. Stock is the authoritative on-hand
// count; the inventory module is the only writer of that column once the
// product exists.
type Product struct {
	ID          uuid.UUID `json:"id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	SKU         string    `json:"sku"`
	Description string    `json:"description"`
	BasePrice   float64   `json:"base_price"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchFilter narrows a product search. Zero values mean "no constraint".
type SearchFilter struct {
	Query    string
	VendorID string
	MinPrice float64
	MaxPrice float64
	Page     int
	Limit    int
}

// SearchResult is one page of products.
type SearchResult struct {
	Products []*Product `json:"products"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}
