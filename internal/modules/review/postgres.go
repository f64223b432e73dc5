package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/lib/pq"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL review repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, rv *Review) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (id, user_id, product_id, rating, title, comment)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rv.ID, rv.UserID, rv.ProductID, rv.Rating, nullable(rv.Title), nullable(rv.Comment))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return apperror.ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByProduct(ctx context.Context, productID string) ([]*Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, product_id, rating, title, comment, created_at, updated_at
		FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		rv := &Review{}
		var title, comment sql.NullString
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating,
			&title, &comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		rv.Title = title.String
		rv.Comment = comment.String
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *postgresRepository) SummaryByProduct(ctx context.Context, productID string) (*Summary, error) {
	s := &Summary{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(rating), 0)
		FROM reviews WHERE product_id = $1`, productID).Scan(&s.Count, &s.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}
	return s, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
