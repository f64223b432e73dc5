package payment

import (
	"context"
	"time"

	"github.com/bazaarhq/bazaar-backend/internal/modules/inventory"
	"github.com/google/uuid"
)

// Payment statuses stored on orders.
const (
	StatusPending       = "PENDING"
	StatusCompleted     = "COMPLETED"
	StatusFailed        = "FAILED"
	StatusRefunded      = "REFUNDED"
	StatusRefundPending = "REFUND_PENDING"
)

// SettledOrder is an order whose payment just completed, with enough
// joined detail to notify the buyer.
type SettledOrder struct {
	ID          uuid.UUID
	OrderNumber string
	UserID      uuid.UUID
	Email       string
	Total       float64
}

// PendingRefund is a cancelled order whose refund has not gone through.
type PendingRefund struct {
	OrderID  uuid.UUID
	IntentID string
	Amount   float64
}

// Repository is the payment module's view of the order store. It touches
// only the payment columns; order lifecycle beyond that stays with the
// order module.
type Repository interface {
	// MarkPaid promotes every still-pending order under the intent to
	// CONFIRMED with a completed payment, and returns the rows it
	// changed. A replayed settlement changes zero rows, which is what
	// makes confirmation idempotent.
	MarkPaid(ctx context.Context, intentID string) ([]SettledOrder, error)

	// MarkFailed cancels every still-pending order under the intent and
	// returns their ids so the caller can restock.
	MarkFailed(ctx context.Context, intentID string) ([]uuid.UUID, error)

	// MarkRefunded moves every completed order under the intent to a
	// refunded payment and returns their ids. Covers refunds issued from
	// the processor's dashboard as well as our own.
	MarkRefunded(ctx context.Context, intentID string) ([]uuid.UUID, error)

	// PendingRefunds lists cancelled orders still owed money, either
	// because the refund call failed at cancel time (REFUND_PENDING) or
	// because the cancel never got to it (CANCELLED with a completed
	// payment). The reconcile sweep finishes these.
	PendingRefunds(ctx context.Context) ([]PendingRefund, error)

	// MarkOrderRefunded moves one order's payment to REFUNDED.
	MarkOrderRefunded(ctx context.Context, orderID uuid.UUID) error

	// ItemsForOrders returns the stock movements the given orders hold.
	ItemsForOrders(ctx context.Context, orderIDs []uuid.UUID) ([]inventory.Reservation, error)

	// StaleIntents lists intents whose orders have sat unpaid longer than
	// olderThan.
	StaleIntents(ctx context.Context, olderThan time.Duration) ([]string, error)

	// VendorPayoutAccount returns the connected account and commission
	// rate for a vendor. An empty account id means onboarding is not done.
	VendorPayoutAccount(ctx context.Context, vendorID string) (accountID string, commissionRate float64, err error)
}
