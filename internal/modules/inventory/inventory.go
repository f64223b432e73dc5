// Package inventory is the stock ledger. Every stock movement goes
// through here as a conditional update, so the on-hand count can never be
// driven below zero no matter how many checkouts race.
package inventory

import "context"

// Reservation is one requested stock movement.
type Reservation struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Repository defines data access for stock counts.
type Repository interface {
	// Reserve decrements stock by quantity only if enough is on hand, and
	// returns the remaining count. Returns apperror.ErrInsufficientStock
	// when the guard fails.
	Reserve(ctx context.Context, productID string, quantity int) (remaining int, err error)

	// Restore puts quantity units back.
	Restore(ctx context.Context, productID string, quantity int) error

	// Adjust applies a signed delta with the same non-negative guard.
	Adjust(ctx context.Context, productID string, delta int) (remaining int, err error)

	// OwnerOf returns the vendor id owning the product.
	OwnerOf(ctx context.Context, productID string) (string, error)
}

// Service defines the interface for stock movements.
type Service interface {
	// ReserveAll reserves every line or none. On any failure the lines
	// already reserved are restored before the error is returned.
	ReserveAll(ctx context.Context, items []Reservation) error

	// RestoreAll puts every line back. Failures are logged and the
	// remaining lines still restored; the ledger prefers overcounting
	// stock to silently losing it.
	RestoreAll(ctx context.Context, items []Reservation)

	// Adjust is the vendor-facing restock operation.
	Adjust(ctx context.Context, vendorUserID, productID string, delta int) (remaining int, err error)
}
