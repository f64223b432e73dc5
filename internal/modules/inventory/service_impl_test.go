package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bazaarhq/bazaar-backend/internal/modules/vendor"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeLedger applies the same guard the conditional update enforces.
type fakeLedger struct {
	mu     sync.Mutex
	stock  map[string]int
	owners map[string]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{stock: make(map[string]int), owners: make(map[string]string)}
}

func (l *fakeLedger) Reserve(ctx context.Context, productID string, quantity int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	have, ok := l.stock[productID]
	if !ok || have < quantity {
		return 0, fmt.Errorf("product %s: %w", productID, apperror.ErrInsufficientStock)
	}
	l.stock[productID] = have - quantity
	return l.stock[productID], nil
}

func (l *fakeLedger) Restore(ctx context.Context, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[productID] += quantity
	return nil
}

func (l *fakeLedger) Adjust(ctx context.Context, productID string, delta int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.stock[productID] + delta
	if next < 0 {
		return 0, fmt.Errorf("product %s: %w", productID, apperror.ErrInsufficientStock)
	}
	l.stock[productID] = next
	return next, nil
}

func (l *fakeLedger) OwnerOf(ctx context.Context, productID string) (string, error) {
	if owner, ok := l.owners[productID]; ok {
		return owner, nil
	}
	return "", apperror.ErrNotFound
}

type staticVendors struct {
	byUser map[string]*vendor.Vendor
}

func (v *staticVendors) GetByUserID(ctx context.Context, userID string) (*vendor.Vendor, error) {
	if vn, ok := v.byUser[userID]; ok {
		return vn, nil
	}
	return nil, apperror.ErrNotFound
}

func newTestService(ledger *fakeLedger, vendors VendorDirectory) Service {
	if vendors == nil {
		vendors = &staticVendors{byUser: map[string]*vendor.Vendor{}}
	}
	log := zap.NewNop()
	return NewService(ledger, vendors, cache.NewDisabled(log), queue.NewDisabledProducer(log), log)
}

func TestReserveAllSucceeds(t *testing.T) {
	ledger := newFakeLedger()
	ledger.stock["a"] = 5
	ledger.stock["b"] = 3
	svc := newTestService(ledger, nil)

	err := svc.ReserveAll(context.Background(), []Reservation{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("ReserveAll: %v", err)
	}
	if ledger.stock["a"] != 3 || ledger.stock["b"] != 0 {
		t.Errorf("stock = %v, want a=3 b=0", ledger.stock)
	}
}

func TestReserveAllIsAllOrNothing(t *testing.T) {
	ledger := newFakeLedger()
	ledger.stock["a"] = 5
	ledger.stock["b"] = 1
	svc := newTestService(ledger, nil)

	err := svc.ReserveAll(context.Background(), []Reservation{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	})
	if !errors.Is(err, apperror.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	// The partial reservation of "a" must have been put back.
	if ledger.stock["a"] != 5 || ledger.stock["b"] != 1 {
		t.Errorf("stock = %v, want untouched a=5 b=1", ledger.stock)
	}
}

func TestConcurrentReserveLastUnit(t *testing.T) {
	ledger := newFakeLedger()
	ledger.stock["a"] = 1
	svc := newTestService(ledger, nil)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.ReserveAll(context.Background(), []Reservation{{ProductID: "a", Quantity: 1}})
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else if !errors.Is(err, apperror.ErrInsufficientStock) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("%d reservations won the last unit, want exactly 1", won)
	}
	if ledger.stock["a"] != 0 {
		t.Errorf("stock = %d, want 0", ledger.stock["a"])
	}
}

func TestAdjustChecksOwnership(t *testing.T) {
	vendorID := uuid.New()
	userID := uuid.New().String()
	ledger := newFakeLedger()
	ledger.stock["a"] = 2
	ledger.owners["a"] = vendorID.String()
	vendors := &staticVendors{byUser: map[string]*vendor.Vendor{
		userID: {ID: vendorID},
	}}
	svc := newTestService(ledger, vendors)

	remaining, err := svc.Adjust(context.Background(), userID, "a", 10)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if remaining != 12 {
		t.Errorf("remaining = %d, want 12", remaining)
	}

	otherVendorUser := uuid.New().String()
	vendors.byUser[otherVendorUser] = &vendor.Vendor{ID: uuid.New()}
	if _, err := svc.Adjust(context.Background(), otherVendorUser, "a", 1); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAdjustRejectsDrivingStockNegative(t *testing.T) {
	vendorID := uuid.New()
	userID := uuid.New().String()
	ledger := newFakeLedger()
	ledger.stock["a"] = 2
	ledger.owners["a"] = vendorID.String()
	vendors := &staticVendors{byUser: map[string]*vendor.Vendor{userID: {ID: vendorID}}}
	svc := newTestService(ledger, vendors)

	if _, err := svc.Adjust(context.Background(), userID, "a", -3); !errors.Is(err, apperror.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if ledger.stock["a"] != 2 {
		t.Errorf("stock = %d, want untouched 2", ledger.stock["a"])
	}
}
