package cart

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL cart repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Upsert(ctx context.Context, userID, productID string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`,
		uuid.New(), userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = $3, updated_at = $4
		WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity, time.Now())
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, userID string) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.id, ci.product_id, p.vendor_id, p.title, p.base_price,
		       ci.quantity, p.stock, ci.created_at, ci.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it := &Item{}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.VendorID, &it.Title, &it.UnitPrice,
			&it.Quantity, &it.Stock, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		it.LineTotal = it.UnitPrice * float64(it.Quantity)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
