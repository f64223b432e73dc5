package review

import (
	"context"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/google/uuid"
)

type service struct {
	repo Repository
}

// NewService creates a new review service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Add(ctx context.Context, userID, productID string, rating int, title, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.New(apperror.KindValidation, "rating must be between 1 and 5")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "invalid user id")
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "invalid product id")
	}
	rv := &Review{
		ID:        uuid.New(),
		UserID:    uid,
		ProductID: pid,
		Rating:    rating,
		Title:     title,
		Comment:   comment,
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *service) ListByProduct(ctx context.Context, productID string) ([]*Review, error) {
	return s.repo.ListByProduct(ctx, productID)
}

func (s *service) SummaryByProduct(ctx context.Context, productID string) (*Summary, error) {
	return s.repo.SummaryByProduct(ctx, productID)
}
