package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL order repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `o.id, o.order_number, o.user_id, o.vendor_id, o.status, o.payment_status,
	o.subtotal, o.shipping_cost, o.tax, o.total, o.payment_intent_id,
	o.shipping_address_id, o.billing_address_id, o.notes,
	u.email, o.delivered_at, o.created_at, o.updated_at`

func (r *postgresRepository) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.product_id, p.vendor_id, p.base_price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1 AND p.is_active
		ORDER BY p.vendor_id, ci.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.VendorID, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *postgresRepository) CreateOrders(ctx context.Context, drafts []*Order, clearCartUserID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback()

	for _, o := range drafts {
		// The counter row is bumped under the transaction's lock, so two
		// concurrent checkouts serialize here and get distinct numbers.
		// The day comes back with the sequence: both halves of the number
		// are keyed on the database clock, never the app server's zone.
		var day time.Time
		var seq int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO order_day_counters (day, seq)
			VALUES (CURRENT_DATE, 1)
			ON CONFLICT (day) DO UPDATE SET seq = order_day_counters.seq + 1
			RETURNING day, seq`).Scan(&day, &seq)
		if err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		o.OrderNumber = FormatOrderNumber(day, seq)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (id, order_number, user_id, vendor_id, status, payment_status,
				subtotal, shipping_cost, tax, total, payment_intent_id,
				shipping_address_id, billing_address_id, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			o.ID, o.OrderNumber, o.UserID, o.VendorID, o.Status, o.PaymentStatus,
			o.Subtotal, o.ShippingCost, o.Tax, o.Total, o.PaymentIntentID,
			nullableUUID(o.ShippingAddressID), nullableUUID(o.BillingAddressID), nullable(o.Notes))
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.OrderNumber, err)
		}

		for _, it := range o.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, variant_id, quantity, unit_price, total_price)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				it.ID, o.ID, it.ProductID, it.VariantID, it.Quantity, it.UnitPrice, it.TotalPrice)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
	}

	// Clearing the cart inside the same transaction means a checkout either
	// produces orders and an empty cart, or neither.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1`, clearCartUserID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	o, err := r.scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`, id))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.itemsFor(ctx, o.ID)
	return o, err
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	return r.list(ctx, `o.user_id = $1`, userID)
}

func (r *postgresRepository) ListByVendor(ctx context.Context, vendorID string) ([]*Order, error) {
	return r.list(ctx, `o.vendor_id = $1`, vendorID)
}

func (r *postgresRepository) list(ctx context.Context, where string, arg interface{}) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE `+where+`
		ORDER BY o.created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o := &Order{}
		if err := scanOrderFields(rows.Scan, o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id string, from, to OrderStatus) (*Order, bool, error) {
	var updated uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $3,
		    delivered_at = CASE WHEN $3 = 'DELIVERED' THEN now() ELSE delivered_at END,
		    updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING id`,
		id, from, to).Scan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("update order status: %w", err)
	}
	o, err := r.GetByID(ctx, updated.String())
	return o, true, err
}

func (r *postgresRepository) SetPaymentStatus(ctx context.Context, id, paymentStatus string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1`,
		id, paymentStatus)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	return nil
}

func (r *postgresRepository) itemsFor(ctx context.Context, orderID uuid.UUID) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_id, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it := &Item{}
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepository) scanOrder(row *sql.Row) (*Order, error) {
	o := &Order{}
	if err := scanOrderFields(row.Scan, o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return o, nil
}

func scanOrderFields(scan func(...interface{}) error, o *Order) error {
	var intentID, notes sql.NullString
	var shipAddr, billAddr uuid.NullUUID
	var deliveredAt sql.NullTime
	err := scan(&o.ID, &o.OrderNumber, &o.UserID, &o.VendorID, &o.Status, &o.PaymentStatus,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total, &intentID,
		&shipAddr, &billAddr, &notes,
		&o.CustomerEmail, &deliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}
	o.PaymentIntentID = intentID.String
	o.Notes = notes.String
	if shipAddr.Valid {
		o.ShippingAddressID = &shipAddr.UUID
	}
	if billAddr.Valid {
		o.BillingAddressID = &billAddr.UUID
	}
	if deliveredAt.Valid {
		o.DeliveredAt = &deliveredAt.Time
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
