package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bazaarhq/bazaar-backend/internal/modules/inventory"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL payment repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) MarkPaid(ctx context.Context, intentID string) ([]SettledOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE orders o
		SET payment_status = 'COMPLETED', status = 'CONFIRMED', updated_at = now()
		FROM users u
		WHERE u.id = o.user_id
		  AND o.payment_intent_id = $1
		  AND o.payment_status = 'PENDING'
		RETURNING o.id, o.order_number, o.user_id, u.email, o.total`, intentID)
	if err != nil {
		return nil, fmt.Errorf("mark orders paid: %w", err)
	}
	defer rows.Close()

	var settled []SettledOrder
	for rows.Next() {
		var so SettledOrder
		if err := rows.Scan(&so.ID, &so.OrderNumber, &so.UserID, &so.Email, &so.Total); err != nil {
			return nil, err
		}
		settled = append(settled, so)
	}
	return settled, rows.Err()
}

func (r *postgresRepository) MarkFailed(ctx context.Context, intentID string) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE orders
		SET payment_status = 'FAILED', status = 'CANCELLED', updated_at = now()
		WHERE payment_intent_id = $1 AND payment_status = 'PENDING'
		RETURNING id`, intentID)
	if err != nil {
		return nil, fmt.Errorf("mark orders failed: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepository) MarkRefunded(ctx context.Context, intentID string) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE orders
		SET payment_status = 'REFUNDED', updated_at = now()
		WHERE payment_intent_id = $1 AND payment_status = 'COMPLETED'
		RETURNING id`, intentID)
	if err != nil {
		return nil, fmt.Errorf("mark orders refunded: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepository) PendingRefunds(ctx context.Context) ([]PendingRefund, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payment_intent_id, total FROM orders
		WHERE payment_intent_id IS NOT NULL
		  AND (payment_status = 'REFUND_PENDING'
		       OR (status = 'CANCELLED' AND payment_status = 'COMPLETED'))`)
	if err != nil {
		return nil, fmt.Errorf("list pending refunds: %w", err)
	}
	defer rows.Close()

	var pending []PendingRefund
	for rows.Next() {
		var p PendingRefund
		if err := rows.Scan(&p.OrderID, &p.IntentID, &p.Amount); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *postgresRepository) MarkOrderRefunded(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = 'REFUNDED', updated_at = now()
		WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("mark order %s refunded: %w", orderID, err)
	}
	return nil
}

func (r *postgresRepository) ItemsForOrders(ctx context.Context, orderIDs []uuid.UUID) ([]inventory.Reservation, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity FROM order_items
		WHERE order_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []inventory.Reservation
	for rows.Next() {
		var it inventory.Reservation
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepository) StaleIntents(ctx context.Context, olderThan time.Duration) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT payment_intent_id FROM orders
		WHERE payment_status = 'PENDING'
		  AND payment_intent_id IS NOT NULL
		  AND created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		intents = append(intents, id)
	}
	return intents, rows.Err()
}

func (r *postgresRepository) VendorPayoutAccount(ctx context.Context, vendorID string) (string, float64, error) {
	var account sql.NullString
	var rate float64
	err := r.db.QueryRowContext(ctx, `
		SELECT stripe_account_id, commission_rate FROM vendors WHERE id = $1`,
		vendorID).Scan(&account, &rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, fmt.Errorf("vendor %s: %w", vendorID, apperror.ErrNotFound)
		}
		return "", 0, err
	}
	return account.String, rate, nil
}
