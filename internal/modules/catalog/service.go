package catalog

import (
	"context"

	"github.com/bazaarhq/bazaar-backend/internal/modules/vendor"
)

// LowStockThreshold is where a product starts showing up on the vendor's
// restock list.
const LowStockThreshold = 5

// VendorDirectory is the slice of the vendor module the catalog needs to
// resolve the caller's storefront.
type VendorDirectory interface {
	GetByUserID(ctx context.Context, userID string) (*vendor.Vendor, error)
}

// CreateProduct is the input for a new listing.
type CreateProduct struct {
	Title       string  `json:"title"`
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"base_price"`
	Stock       int     `json:"stock"`
}

// UpdateProduct is the input for editing a listing. Stock is absent on
// purpose; stock moves through the inventory module only.
type UpdateProduct struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"base_price"`
}

// Service defines the interface for catalog business logic.
type Service interface {
	// Create adds a listing to the caller's storefront.
	Create(ctx context.Context, vendorUserID string, in CreateProduct) (*Product, error)

	// Get returns the product, served from cache when possible.
	Get(ctx context.Context, id string) (*Product, error)

	GetBySlug(ctx context.Context, slug string) (*Product, error)

	// Search returns a page of active products. Identical filters hit the
	// same cache entry regardless of how the caller ordered the parameters.
	Search(ctx context.Context, f SearchFilter) (*SearchResult, error)

	// Update edits a listing owned by the caller and invalidates its cache.
	Update(ctx context.Context, vendorUserID, productID string, in UpdateProduct) (*Product, error)

	// Deactivate hides a listing owned by the caller.
	Deactivate(ctx context.Context, vendorUserID, productID string) (*Product, error)

	// LowStock lists the caller's products at or below the restock threshold.
	LowStock(ctx context.Context, vendorUserID string) ([]*Product, error)
}
