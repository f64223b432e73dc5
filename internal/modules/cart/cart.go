// Package cart manages the shopping cart. The cart is a staging area
// only; nothing here reserves stock. Reservation happens at checkout.
package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Item is a cart line joined with the listing it points at. Stock is the
// current on-hand count, so the UI can flag lines that can no longer be
// fulfilled before the customer reaches checkout.
type Item struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Title     string    `json:"title"`
	UnitPrice float64   `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	LineTotal float64   `json:"line_total"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cart is the customer's current cart with a subtotal preview. Tax and
// shipping are not computed here; checkout owns the final math.
type Cart struct {
	Items    []*Item `json:"items"`
	Subtotal float64 `json:"subtotal"`
}

// Repository defines data access for cart lines.
type Repository interface {
	// Upsert adds quantity to an existing line or inserts a new one.
	Upsert(ctx context.Context, userID, productID string, quantity int) error

	// SetQuantity replaces the quantity of an existing line.
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error

	Remove(ctx context.Context, userID, productID string) error
	List(ctx context.Context, userID string) ([]*Item, error)
	Clear(ctx context.Context, userID string) error
}

// Service defines the interface for cart business logic.
type Service interface {
	// AddItem puts quantity units of the product in the cart after checking
	// the listing is active and has enough stock right now.
	AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error)

	// UpdateItem sets the line quantity; zero removes the line.
	UpdateItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error)

	RemoveItem(ctx context.Context, userID, productID string) (*Cart, error)
	Get(ctx context.Context, userID string) (*Cart, error)
	Clear(ctx context.Context, userID string) error
}
