package payment

import (
	"context"

	"github.com/bazaarhq/bazaar-backend/internal/modules/inventory"
)

// StockRestorer is the slice of the inventory module settlement needs to
// put stock back when a stale payment turns out to have failed.
type StockRestorer interface {
	RestoreAll(ctx context.Context, items []inventory.Reservation)
}

// Service defines the interface for payment business logic.
type Service interface {
	// CreateIntent opens a payment authorization for the given amount.
	CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error)

	// ConfirmAndSettle re-verifies the intent with the processor and, if it
	// succeeded, promotes every order under it. Safe to call repeatedly.
	ConfirmAndSettle(ctx context.Context, intentID string) ([]SettledOrder, error)

	// RefundIntent reverses amount of the captured intent.
	RefundIntent(ctx context.Context, intentID string, amount float64) (*Refund, error)

	// FailIntent cancels every still-pending order under the intent and
	// restores their stock. Safe to call repeatedly.
	FailIntent(ctx context.Context, intentID string) error

	// SettleRefund records a refund the processor reports, moving the
	// intent's completed orders to a refunded payment. Safe to call
	// repeatedly.
	SettleRefund(ctx context.Context, intentID string) error

	// PayoutVendor transfers amount minus commission to the vendor's
	// connected account. Returns apperror.ErrNoPayoutAccount before any
	// money moves if onboarding is incomplete.
	PayoutVendor(ctx context.Context, vendorID string, amount float64) (*Transfer, error)

	// Reconcile sweeps orders stuck unpaid and settles them against the
	// processor's view, which is authoritative.
	Reconcile(ctx context.Context) error
}
