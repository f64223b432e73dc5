// Package payment adapts the card processor behind a small gateway
// interface and settles the outcome onto orders.
package payment

import "context"

// Intent statuses surfaced by the gateway, normalized to the processor's
// vocabulary.
const (
	IntentSucceeded = "succeeded"
	IntentCanceled  = "canceled"
)

// Intent is a payment authorization in flight. Amount is in major
// currency units; conversion to the processor's minor units happens inside
// the gateway and nowhere else.
type Intent struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"client_secret,omitempty"`
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// Refund is a completed reversal.
type Refund struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

// Transfer is a payout to a vendor's connected account.
type Transfer struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
}

// Gateway is the card processor surface the rest of the system sees.
type Gateway interface {
	CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	RefundIntent(ctx context.Context, intentID string, amount float64) (*Refund, error)
	Payout(ctx context.Context, accountID string, amount float64, currency string) (*Transfer, error)
}
