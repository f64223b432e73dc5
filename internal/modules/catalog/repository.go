package catalog

import "context"

// Repository defines data access for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)

	// Update overwrites the mutable listing fields. Stock is deliberately
	// excluded; only the inventory module moves stock.
	Update(ctx context.Context, p *Product) (*Product, error)

	SetActive(ctx context.Context, id string, active bool) (*Product, error)

	Search(ctx context.Context, f SearchFilter) (*SearchResult, error)

	// ListLowStock returns the vendor's active products at or below threshold.
	ListLowStock(ctx context.Context, vendorID string, threshold int) ([]*Product, error)
}
