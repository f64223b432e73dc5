// Package order implements checkout and the order lifecycle.
package order

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// validTransitions is the whole lifecycle. Cancellation is only reachable
// from PENDING; once a vendor has confirmed, the order ships or it doesn't.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a status string from a request.
func ParseStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// Pricing constants. Tax applies to the merchandise subtotal only, and
// shipping is a flat rate charged once per vendor shipment.
const (
	TaxRate          = 0.10
	FlatShippingRate = 5.00
)

// Order is one vendor's share of a checkout.
type Order struct {
	ID                uuid.UUID   `json:"id"`
	OrderNumber       string      `json:"order_number"`
	UserID            uuid.UUID   `json:"user_id"`
	VendorID          uuid.UUID   `json:"vendor_id"`
	Status            OrderStatus `json:"status"`
	PaymentStatus     string      `json:"payment_status"`
	Subtotal          float64     `json:"subtotal"`
	ShippingCost      float64     `json:"shipping_cost"`
	Tax               float64     `json:"tax"`
	Total             float64     `json:"total"`
	PaymentIntentID   string      `json:"payment_intent_id,omitempty"`
	ShippingAddressID *uuid.UUID  `json:"shipping_address_id,omitempty"`
	BillingAddressID  *uuid.UUID  `json:"billing_address_id,omitempty"`
	Notes             string      `json:"notes,omitempty"`
	Items             []*Item     `json:"items,omitempty"`
	CustomerEmail     string      `json:"-"`
	DeliveredAt       *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Item is one order line, priced at checkout time.
type Item struct {
	ID         uuid.UUID  `json:"id"`
	OrderID    uuid.UUID  `json:"order_id"`
	ProductID  uuid.UUID  `json:"product_id"`
	VariantID  *uuid.UUID `json:"variant_id,omitempty"`
	Quantity   int        `json:"quantity"`
	UnitPrice  float64    `json:"unit_price"`
	TotalPrice float64    `json:"total_price"`
}

// FormatOrderNumber renders the human-facing number for the seq-th order
// of the given day.
func FormatOrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
