package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL product repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `id, vendor_id, title, slug, sku, description,
	base_price, stock, is_active, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, vendor_id, title, slug, sku, description, base_price, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.VendorID, p.Title, p.Slug, p.SKU, p.Description, p.BasePrice, p.Stock)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *postgresRepository) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) (*Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products
		SET title = $2, slug = $3, description = $4, base_price = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Title, p.Slug, p.Description, p.BasePrice, time.Now()))
}

func (r *postgresRepository) SetActive(ctx context.Context, id string, active bool) (*Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products SET is_active = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+productColumns,
		id, active, time.Now()))
}

func (r *postgresRepository) Search(ctx context.Context, f SearchFilter) (*SearchResult, error) {
	where := []string{"is_active"}
	args := []interface{}{}

	if f.Query != "" {
		args = append(args, "%"+strings.ToLower(f.Query)+"%")
		where = append(where, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}
	if f.VendorID != "" {
		args = append(args, f.VendorID)
		where = append(where, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if f.MinPrice > 0 {
		args = append(args, f.MinPrice)
		where = append(where, fmt.Sprintf("base_price >= $%d", len(args)))
	}
	if f.MaxPrice > 0 {
		args = append(args, f.MaxPrice)
		where = append(where, fmt.Sprintf("base_price <= $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	result := &SearchResult{Page: f.Page, Limit: f.Limit}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE `+clause, args...).Scan(&result.Total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM products WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		productColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p := &Product{}
		if err := scanProductFields(rows.Scan, p); err != nil {
			return nil, err
		}
		result.Products = append(result.Products, p)
	}
	return result, rows.Err()
}

func (r *postgresRepository) ListLowStock(ctx context.Context, vendorID string, threshold int) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE vendor_id = $1 AND is_active AND stock <= $2
		ORDER BY stock ASC`, vendorID, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p := &Product{}
		if err := scanProductFields(rows.Scan, p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row *sql.Row) (*Product, error) {
	p := &Product{}
	if err := scanProductFields(row.Scan, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func scanProductFields(scan func(...interface{}) error, p *Product) error {
	return scan(&p.ID, &p.VendorID, &p.Title, &p.Slug, &p.SKU, &p.Description,
		&p.BasePrice, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}
