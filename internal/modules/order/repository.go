package order

import (
	"context"

	"github.com/google/uuid"
)

// CartLine is a checkout-ready cart row joined with its current price and
// owning vendor.
type CartLine struct {
	ProductID uuid.UUID
	VendorID  uuid.UUID
	UnitPrice float64
	Quantity  int
}

// Repository defines data access for orders.
type Repository interface {
	// CartLines loads the user's cart priced at current listing prices.
	CartLines(ctx context.Context, userID string) ([]CartLine, error)

	// CreateOrders persists the drafts and clears the user's cart in one
	// transaction. Order numbers are minted inside the same transaction
	// from the per-day counter, so each draft's OrderNumber is filled in
	// on return.
	CreateOrders(ctx context.Context, drafts []*Order, clearCartUserID string) error

	// GetByID returns the order with its items and the buyer's email.
	GetByID(ctx context.Context, id string) (*Order, error)

	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]*Order, error)

	// UpdateStatus moves the order from exactly the given status to the
	// next one. Returns false when the order was no longer in from, which
	// is how concurrent updates lose cleanly.
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus) (*Order, bool, error)

	SetPaymentStatus(ctx context.Context, id, paymentStatus string) error
}
