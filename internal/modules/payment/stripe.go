package payment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/transfer"
)

// gatewayTimeout bounds every synchronous round-trip to the processor so a
// hung call surfaces as a retryable Unavailable error instead of stalling
// the checkout.
const gatewayTimeout = 15 * time.Second

type stripeGateway struct{}

// NewStripeGateway configures the Stripe client with the given secret key.
func NewStripeGateway(secretKey string) Gateway {
	stripe.Key = secretKey
	return &stripeGateway{}
}

func (g *stripeGateway) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUnavailable, err, "create payment intent")
	}
	return intentFromStripe(pi), nil
}

func (g *stripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUnavailable, err, fmt.Sprintf("get payment intent %s", id))
	}
	return intentFromStripe(pi), nil
}

func (g *stripeGateway) RefundIntent(ctx context.Context, intentID string, amount float64) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(toMinorUnits(amount)),
	}
	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	params.Context = ctx
	rf, err := refund.New(params)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUnavailable, err, fmt.Sprintf("refund intent %s", intentID))
	}
	return &Refund{
		ID:     rf.ID,
		Amount: fromMinorUnits(rf.Amount),
		Status: string(rf.Status),
	}, nil
}

func (g *stripeGateway) Payout(ctx context.Context, accountID string, amount float64, currency string) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(toMinorUnits(amount)),
		Currency:    stripe.String(currency),
		Destination: stripe.String(accountID),
	}
	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	params.Context = ctx
	tr, err := transfer.New(params)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUnavailable, err, fmt.Sprintf("payout to %s", accountID))
	}
	return &Transfer{
		ID:     tr.ID,
		Amount: fromMinorUnits(tr.Amount),
	}, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       fromMinorUnits(pi.Amount),
		Currency:     string(pi.Currency),
	}
}

// toMinorUnits is the only place major currency units become processor
// minor units. Rounding once here keeps every charge, refund, and payout
// consistent to the cent.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(m int64) float64 {
	return float64(m) / 100
}
