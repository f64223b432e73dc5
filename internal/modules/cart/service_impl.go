package cart

import (
	"context"
	"fmt"
	"math"

	"github.com/bazaarhq/bazaar-backend/internal/modules/catalog"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
)

// ProductReader is the slice of the catalog the cart needs to validate a
// line before storing it.
type ProductReader interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

type service struct {
	repo     Repository
	products ProductReader
}

// NewService creates a new cart service.
func NewService(repo Repository, products ProductReader) Service {
	return &service{repo: repo, products: products}
}

func (s *service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperror.New(apperror.KindValidation, "quantity must be at least 1")
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperror.New(apperror.KindConflict, "product is no longer available")
	}
	if p.Stock < quantity {
		return nil, fmt.Errorf("product %s: %w", productID, apperror.ErrInsufficientStock)
	}
	if err := s.repo.Upsert(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, apperror.New(apperror.KindValidation, "quantity must not be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Stock < quantity {
		return nil, fmt.Errorf("product %s: %w", productID, apperror.ErrInsufficientStock)
	}
	if err := s.repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID string) (*Cart, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := &Cart{Items: items}
	for _, it := range items {
		c.Subtotal += it.LineTotal
	}
	c.Subtotal = round2(c.Subtotal)
	return c, nil
}

func (s *service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
