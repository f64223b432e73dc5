// Package review manages product reviews. One review per user per
// product, enforced by the database.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Review is a customer's rating of a product.
type Review struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the aggregate shown on a product page.
type Summary struct {
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

// Repository defines data access for reviews.
type Repository interface {
	// Create inserts the review. A second review by the same user for the
	// same product returns apperror.ErrDuplicateReview.
	Create(ctx context.Context, rv *Review) error

	ListByProduct(ctx context.Context, productID string) ([]*Review, error)
	SummaryByProduct(ctx context.Context, productID string) (*Summary, error)
}

// Service defines the interface for review business logic.
type Service interface {
	Add(ctx context.Context, userID, productID string, rating int, title, comment string) (*Review, error)
	ListByProduct(ctx context.Context, productID string) ([]*Review, error)
	SummaryByProduct(ctx context.Context, productID string) (*Summary, error)
}
