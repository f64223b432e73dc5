package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL inventory repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Reserve(ctx context.Context, productID string, quantity int) (int, error) {
	var remaining int
	err := r.db.QueryRowContext(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING stock`,
		productID, quantity).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the product does not exist or the guard failed;
			// both read as "cannot fulfill" to the caller.
			return 0, fmt.Errorf("product %s: %w", productID, apperror.ErrInsufficientStock)
		}
		return 0, fmt.Errorf("reserve stock: %w", err)
	}
	return remaining, nil
}

func (r *postgresRepository) Restore(ctx context.Context, productID string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`,
		productID, quantity)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

func (r *postgresRepository) Adjust(ctx context.Context, productID string, delta int) (int, error) {
	var remaining int
	err := r.db.QueryRowContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock`,
		productID, delta).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("product %s: %w", productID, apperror.ErrInsufficientStock)
		}
		return 0, fmt.Errorf("adjust stock: %w", err)
	}
	return remaining, nil
}

func (r *postgresRepository) OwnerOf(ctx context.Context, productID string) (string, error) {
	var vendorID string
	err := r.db.QueryRowContext(ctx,
		`SELECT vendor_id FROM products WHERE id = $1`, productID).Scan(&vendorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("product %s: %w", productID, apperror.ErrNotFound)
		}
		return "", err
	}
	return vendorID, nil
}
