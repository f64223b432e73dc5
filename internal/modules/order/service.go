package order

import (
	"context"

	"github.com/bazaarhq/bazaar-backend/internal/modules/inventory"
	"github.com/bazaarhq/bazaar-backend/internal/modules/payment"
	"github.com/bazaarhq/bazaar-backend/internal/modules/vendor"
)

// StockReserver is the slice of the inventory ledger checkout needs.
type StockReserver interface {
	ReserveAll(ctx context.Context, items []inventory.Reservation) error
	RestoreAll(ctx context.Context, items []inventory.Reservation)
}

// PaymentProcessor is the slice of the payment module checkout and
// cancellation need.
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*payment.Intent, error)
	RefundIntent(ctx context.Context, intentID string, amount float64) (*payment.Refund, error)
}

// VendorDirectory resolves a vendor user's storefront for the vendor-side
// order views.
type VendorDirectory interface {
	GetByUserID(ctx context.Context, userID string) (*vendor.Vendor, error)
}

// CheckoutInput carries the buyer-supplied parts of a checkout. A zero
// ShippingCost falls back to the flat per-shipment rate; the address
// references are optional and point at the buyer's saved addresses.
type CheckoutInput struct {
	ShippingCost      float64 `json:"shipping_cost"`
	ShippingAddressID string  `json:"shipping_address_id"`
	BillingAddressID  string  `json:"billing_address_id"`
	Notes             string  `json:"notes"`
}

// CheckoutResult is everything the client needs to finish paying.
type CheckoutResult struct {
	Orders       []*Order `json:"orders"`
	IntentID     string   `json:"intent_id"`
	ClientSecret string   `json:"client_secret"`
	Total        float64  `json:"total"`
}

// Service defines the interface for order business logic.
type Service interface {
	// Checkout turns the cart into one order per vendor, reserves stock
	// for every line, and opens a payment intent covering the grand total.
	// Any failure after reservation puts the reserved stock back.
	Checkout(ctx context.Context, userID string, in CheckoutInput) (*CheckoutResult, error)

	// Get returns the order if the caller owns it, sold it, or is an admin.
	Get(ctx context.Context, callerID string, admin bool, orderID string) (*Order, error)

	ListMine(ctx context.Context, userID string) ([]*Order, error)
	ListForVendor(ctx context.Context, vendorUserID string) ([]*Order, error)

	// UpdateStatus moves the order along the lifecycle on behalf of the
	// selling vendor or an admin.
	UpdateStatus(ctx context.Context, callerID string, admin bool, orderID string, to OrderStatus) (*Order, error)

	// Cancel voids a still-pending order, refunds the payment if it had
	// completed, and restores the reserved stock.
	Cancel(ctx context.Context, userID, orderID string) (*Order, error)
}
