package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bazaarhq/bazaar-backend/internal/modules/vendor"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
	"go.uber.org/zap"
)

// LowStockThreshold is where a reservation triggers a restock alert for
// the owning vendor.
const LowStockThreshold = 5

// VendorDirectory resolves the caller's storefront for the restock
// operation.
type VendorDirectory interface {
	GetByUserID(ctx context.Context, userID string) (*vendor.Vendor, error)
}

type service struct {
	repo    Repository
	vendors VendorDirectory
	cache   *cache.Cache
	jobs    *queue.Producer
	log     *zap.Logger
}

// NewService creates a new inventory service.
func NewService(repo Repository, vendors VendorDirectory, c *cache.Cache, jobs *queue.Producer, log *zap.Logger) Service {
	return &service{repo: repo, vendors: vendors, cache: c, jobs: jobs, log: log}
}

func (s *service) ReserveAll(ctx context.Context, items []Reservation) error {
	reserved := make([]Reservation, 0, len(items))
	for _, it := range items {
		remaining, err := s.repo.Reserve(ctx, it.ProductID, it.Quantity)
		if err != nil {
			// Unwind what this call already took before reporting failure.
			s.RestoreAll(ctx, reserved)
			return err
		}
		reserved = append(reserved, it)
		s.afterMovement(ctx, it.ProductID, remaining)
	}
	return nil
}

func (s *service) RestoreAll(ctx context.Context, items []Reservation) {
	for _, it := range items {
		if err := s.repo.Restore(ctx, it.ProductID, it.Quantity); err != nil {
			s.log.Error("stock restore failed",
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err))
			continue
		}
		s.cache.Delete(ctx, cache.ProductKey(it.ProductID))
	}
}

func (s *service) Adjust(ctx context.Context, vendorUserID, productID string, delta int) (int, error) {
	if delta == 0 {
		return 0, apperror.New(apperror.KindValidation, "delta must not be zero")
	}
	v, err := s.vendors.GetByUserID(ctx, vendorUserID)
	if err != nil {
		return 0, err
	}
	owner, err := s.repo.OwnerOf(ctx, productID)
	if err != nil {
		return 0, err
	}
	if owner != v.ID.String() {
		return 0, fmt.Errorf("product %s: %w", productID, apperror.ErrForbidden)
	}
	remaining, err := s.repo.Adjust(ctx, productID, delta)
	if err != nil {
		return 0, err
	}
	s.afterMovement(ctx, productID, remaining)
	return remaining, nil
}

// afterMovement invalidates the cached product and raises a restock alert
// when the count has dropped to the threshold.
func (s *service) afterMovement(ctx context.Context, productID string, remaining int) {
	s.cache.Delete(ctx, cache.ProductKey(productID))
	if remaining <= LowStockThreshold {
		s.jobs.Enqueue(ctx, queue.TopicNotification, productID, queue.Job{
			Type: queue.JobLowStockAlert,
			Data: map[string]string{
				"product_id": productID,
				"remaining":  strconv.Itoa(remaining),
			},
		})
	}
}
