package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bazaarhq/bazaar-backend/internal/modules/inventory"
	"github.com/bazaarhq/bazaar-backend/internal/modules/payment"
	"github.com/bazaarhq/bazaar-backend/internal/modules/vendor"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu        sync.Mutex
	lines     []CartLine
	orders    map[uuid.UUID]*Order
	createErr error
	created   []*Order
	cleared   bool
	payments  map[string]string
	counters  map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:   make(map[uuid.UUID]*Order),
		payments: make(map[string]string),
		counters: make(map[string]int),
	}
}

func (r *fakeRepo) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	return r.lines, nil
}

// CreateOrders numbers drafts from a per-day counter under the repo lock,
// mirroring the upsert the real store does inside its transaction.
func (r *fakeRepo) CreateOrders(ctx context.Context, drafts []*Order, clearCartUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	day := time.Now()
	key := day.Format("20060102")
	for _, o := range drafts {
		r.counters[key]++
		o.OrderNumber = FormatOrderNumber(day, r.counters[key])
		r.orders[o.ID] = o
		r.created = append(r.created, o)
	}
	r.cleared = true
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[uuid.MustParse(id)]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) ListByUser(ctx context.Context, userID string) ([]*Order, error)     { return nil, nil }
func (r *fakeRepo) ListByVendor(ctx context.Context, vendorID string) ([]*Order, error) { return nil, nil }

func (r *fakeRepo) UpdateStatus(ctx context.Context, id string, from, to OrderStatus) (*Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[uuid.MustParse(id)]
	if !ok || o.Status != from {
		return nil, false, nil
	}
	o.Status = to
	cp := *o
	return &cp, true, nil
}

func (r *fakeRepo) SetPaymentStatus(ctx context.Context, id, paymentStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[id] = paymentStatus
	if o, ok := r.orders[uuid.MustParse(id)]; ok {
		o.PaymentStatus = paymentStatus
	}
	return nil
}

type fakeStock struct {
	mu         sync.Mutex
	reserveErr error
	reserved   []inventory.Reservation
	restored   []inventory.Reservation
}

func (s *fakeStock) ReserveAll(ctx context.Context, items []inventory.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved = append(s.reserved, items...)
	return nil
}

func (s *fakeStock) RestoreAll(ctx context.Context, items []inventory.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restored = append(s.restored, items...)
}

type refundCall struct {
	intentID string
	amount   float64
}

type fakePayments struct {
	mu          sync.Mutex
	createErr   error
	createdWith float64
	refundErr   error
	refunds     []refundCall
}

func (p *fakePayments) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.createdWith = amount
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", Amount: amount, Currency: currency}, nil
}

func (p *fakePayments) RefundIntent(ctx context.Context, intentID string, amount float64) (*payment.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	p.refunds = append(p.refunds, refundCall{intentID: intentID, amount: amount})
	return &payment.Refund{ID: "re_test", Amount: amount}, nil
}

type fakeVendors struct {
	byUser map[string]*vendor.Vendor
}

func (v *fakeVendors) GetByUserID(ctx context.Context, userID string) (*vendor.Vendor, error) {
	if vn, ok := v.byUser[userID]; ok {
		return vn, nil
	}
	return nil, apperror.ErrNotFound
}

func newTestService(repo *fakeRepo, stock *fakeStock, pay *fakePayments, vendors *fakeVendors) Service {
	if vendors == nil {
		vendors = &fakeVendors{byUser: map[string]*vendor.Vendor{}}
	}
	return NewService(repo, stock, pay, vendors, queue.NewDisabledProducer(zap.NewNop()), zap.NewNop())
}

func TestCheckoutMath(t *testing.T) {
	userID := uuid.New()
	vendorID := uuid.New()
	productID := uuid.New()

	repo := newFakeRepo()
	repo.lines = []CartLine{
		{ProductID: productID, VendorID: vendorID, UnitPrice: 10.00, Quantity: 2},
	}
	stock := &fakeStock{}
	pay := &fakePayments{}

	svc := newTestService(repo, stock, pay, nil)
	result, err := svc.Checkout(context.Background(), userID.String(), CheckoutInput{})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if len(result.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(result.Orders))
	}
	o := result.Orders[0]
	if o.Subtotal != 20.00 {
		t.Errorf("subtotal = %v, want 20.00", o.Subtotal)
	}
	if o.ShippingCost != 5.00 {
		t.Errorf("shipping = %v, want 5.00", o.ShippingCost)
	}
	if o.Tax != 2.00 {
		t.Errorf("tax = %v, want 2.00", o.Tax)
	}
	if o.Total != 27.00 {
		t.Errorf("total = %v, want 27.00", o.Total)
	}
	if result.Total != 27.00 {
		t.Errorf("grand total = %v, want 27.00", result.Total)
	}
	if pay.createdWith != 27.00 {
		t.Errorf("intent opened for %v, want 27.00", pay.createdWith)
	}
	if o.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", o.Status)
	}
	if o.PaymentIntentID != "pi_test" {
		t.Errorf("intent id = %q, want pi_test", o.PaymentIntentID)
	}
	if o.OrderNumber == "" {
		t.Error("order number not assigned")
	}
	if !repo.cleared {
		t.Error("cart was not cleared")
	}
}

func TestCheckoutSuppliedShipping(t *testing.T) {
	repo := newFakeRepo()
	repo.lines = []CartLine{
		{ProductID: uuid.New(), VendorID: uuid.New(), UnitPrice: 10.00, Quantity: 2},
	}
	svc := newTestService(repo, &fakeStock{}, &fakePayments{}, nil)

	result, err := svc.Checkout(context.Background(), uuid.New().String(), CheckoutInput{ShippingCost: 12.50})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	// 20 merchandise + 12.50 shipping + 2 tax.
	if o := result.Orders[0]; o.ShippingCost != 12.50 || o.Total != 34.50 {
		t.Errorf("shipping = %v total = %v, want 12.50 and 34.50", o.ShippingCost, o.Total)
	}

	if _, err := svc.Checkout(context.Background(), uuid.New().String(), CheckoutInput{ShippingCost: -1}); err == nil {
		t.Fatal("negative shipping must be rejected")
	}
}

func TestCheckoutSplitsPerVendor(t *testing.T) {
	userID := uuid.New()
	vendorA := uuid.New()
	vendorB := uuid.New()

	repo := newFakeRepo()
	repo.lines = []CartLine{
		{ProductID: uuid.New(), VendorID: vendorA, UnitPrice: 10.00, Quantity: 1},
		{ProductID: uuid.New(), VendorID: vendorB, UnitPrice: 15.00, Quantity: 2},
		{ProductID: uuid.New(), VendorID: vendorA, UnitPrice: 2.50, Quantity: 4},
	}
	stock := &fakeStock{}
	pay := &fakePayments{}

	svc := newTestService(repo, stock, pay, nil)
	result, err := svc.Checkout(context.Background(), userID.String(), CheckoutInput{})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if len(result.Orders) != 2 {
		t.Fatalf("got %d orders, want one per vendor", len(result.Orders))
	}
	byVendor := map[uuid.UUID]*Order{}
	for _, o := range result.Orders {
		byVendor[o.VendorID] = o
		if o.PaymentIntentID != "pi_test" {
			t.Errorf("order %s not tagged with the shared intent", o.OrderNumber)
		}
	}

	// Vendor A: 10 + 4*2.50 = 20 merchandise, 5 shipping, 2 tax = 27.
	if a := byVendor[vendorA]; a == nil || a.Total != 27.00 {
		t.Errorf("vendor A total = %+v, want 27.00", a)
	}
	// Vendor B: 2*15 = 30 merchandise, 5 shipping, 3 tax = 38.
	if b := byVendor[vendorB]; b == nil || b.Total != 38.00 {
		t.Errorf("vendor B total = %+v, want 38.00", b)
	}
	if result.Total != 65.00 {
		t.Errorf("grand total = %v, want 65.00", result.Total)
	}
	if len(byVendor[vendorA].Items) != 2 || len(byVendor[vendorB].Items) != 1 {
		t.Error("items not grouped under their vendor's order")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	repo := newFakeRepo()
	stock := &fakeStock{}
	pay := &fakePayments{}

	svc := newTestService(repo, stock, pay, nil)
	_, err := svc.Checkout(context.Background(), uuid.New().String(), CheckoutInput{})
	if !errors.Is(err, apperror.ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
	if pay.createdWith != 0 {
		t.Error("intent should not be opened for an empty cart")
	}
}

func TestCheckoutIntentFailureLeavesStockAlone(t *testing.T) {
	repo := newFakeRepo()
	repo.lines = []CartLine{{ProductID: uuid.New(), VendorID: uuid.New(), UnitPrice: 10, Quantity: 1}}
	stock := &fakeStock{}
	pay := &fakePayments{createErr: errors.New("gateway down")}

	svc := newTestService(repo, stock, pay, nil)
	if _, err := svc.Checkout(context.Background(), uuid.New().String(), CheckoutInput{}); err == nil {
		t.Fatal("expected error")
	}
	if len(stock.reserved) != 0 {
		t.Error("stock should not be touched before the intent exists")
	}
}

func TestCheckoutReserveFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.lines = []CartLine{{ProductID: uuid.New(), VendorID: uuid.New(), UnitPrice: 10, Quantity: 1}}
	stock := &fakeStock{reserveErr: apperror.ErrInsufficientStock}
	pay := &fakePayments{}

	svc := newTestService(repo, stock, pay, nil)
	_, err := svc.Checkout(context.Background(), uuid.New().String(), CheckoutInput{})
	if !errors.Is(err, apperror.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if len(repo.created) != 0 {
		t.Error("no orders should be created when reservation fails")
	}
}

func TestCheckoutPersistFailureRestoresStock(t *testing.T) {
	productID := uuid.New()
	repo := newFakeRepo()
	repo.lines = []CartLine{{ProductID: productID, VendorID: uuid.New(), UnitPrice: 10, Quantity: 3}}
	repo.createErr = errors.New("db down")
	stock := &fakeStock{}
	pay := &fakePayments{}

	svc := newTestService(repo, stock, pay, nil)
	if _, err := svc.Checkout(context.Background(), uuid.New().String(), CheckoutInput{}); err == nil {
		t.Fatal("expected error")
	}
	if len(stock.restored) != 1 || stock.restored[0].ProductID != productID.String() || stock.restored[0].Quantity != 3 {
		t.Errorf("restored = %+v, want the full reservation back", stock.restored)
	}
}

func TestConcurrentCheckoutsGetDistinctOrderNumbers(t *testing.T) {
	repo := newFakeRepo()
	repo.lines = []CartLine{
		{ProductID: uuid.New(), VendorID: uuid.New(), UnitPrice: 10.00, Quantity: 1},
	}
	svc := newTestService(repo, &fakeStock{}, &fakePayments{}, nil)

	const checkouts = 8
	var wg sync.WaitGroup
	results := make([]*CheckoutResult, checkouts)
	errs := make([]error, checkouts)
	for i := 0; i < checkouts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Checkout(context.Background(), uuid.New().String(), CheckoutInput{})
		}(i)
	}
	wg.Wait()

	numbers := make(map[string]bool)
	for i, err := range errs {
		if err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
		for _, o := range results[i].Orders {
			if o.OrderNumber == "" {
				t.Fatal("order number not assigned")
			}
			if numbers[o.OrderNumber] {
				t.Fatalf("order number %s assigned twice", o.OrderNumber)
			}
			numbers[o.OrderNumber] = true
		}
	}
	if len(numbers) != checkouts {
		t.Errorf("got %d distinct numbers from %d checkouts", len(numbers), checkouts)
	}
}

func seedOrder(repo *fakeRepo, userID uuid.UUID, status OrderStatus, paymentStatus string) *Order {
	o := &Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-20260307-0001",
		UserID:          userID,
		VendorID:        uuid.New(),
		Status:          status,
		PaymentStatus:   paymentStatus,
		Total:           27.00,
		PaymentIntentID: "pi_test",
		Items: []*Item{
			{ID: uuid.New(), ProductID: uuid.New(), Quantity: 2, UnitPrice: 10, TotalPrice: 20},
		},
	}
	repo.orders[o.ID] = o
	return o
}

func TestCancelRefundsCompletedPayment(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepo()
	o := seedOrder(repo, userID, StatusPending, payment.StatusCompleted)
	stock := &fakeStock{}
	pay := &fakePayments{}

	svc := newTestService(repo, stock, pay, nil)
	updated, err := svc.Cancel(context.Background(), userID.String(), o.ID.String())
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", updated.Status)
	}
	if len(pay.refunds) != 1 || pay.refunds[0].intentID != "pi_test" || pay.refunds[0].amount != 27.00 {
		t.Errorf("refunds = %+v, want one full refund of pi_test", pay.refunds)
	}
	if repo.payments[o.ID.String()] != payment.StatusRefunded {
		t.Errorf("payment status = %q, want REFUNDED", repo.payments[o.ID.String()])
	}
	if len(stock.restored) != 1 || stock.restored[0].Quantity != 2 {
		t.Errorf("restored = %+v, want the order's items back", stock.restored)
	}
}

func TestCancelRefundFailureLeavesRefundPending(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepo()
	o := seedOrder(repo, userID, StatusPending, payment.StatusCompleted)
	stock := &fakeStock{}
	pay := &fakePayments{refundErr: errors.New("gateway down")}

	svc := newTestService(repo, stock, pay, nil)
	updated, err := svc.Cancel(context.Background(), userID.String(), o.ID.String())
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", updated.Status)
	}
	// The reservation comes back even though the refund did not go through.
	if len(stock.restored) != 1 || stock.restored[0].Quantity != 2 {
		t.Errorf("restored = %+v, want the order's items back", stock.restored)
	}
	// The order is flagged for the reconcile sweep rather than stranded
	// as COMPLETED.
	if updated.PaymentStatus != payment.StatusRefundPending {
		t.Errorf("payment status = %q, want REFUND_PENDING", updated.PaymentStatus)
	}
	if repo.payments[o.ID.String()] != payment.StatusRefundPending {
		t.Errorf("stored payment status = %q, want REFUND_PENDING", repo.payments[o.ID.String()])
	}
}

func TestCancelUnpaidOrderSkipsRefund(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepo()
	o := seedOrder(repo, userID, StatusPending, payment.StatusPending)
	stock := &fakeStock{}
	pay := &fakePayments{}

	svc := newTestService(repo, stock, pay, nil)
	if _, err := svc.Cancel(context.Background(), userID.String(), o.ID.String()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(pay.refunds) != 0 {
		t.Errorf("refunds = %+v, want none for an unpaid order", pay.refunds)
	}
	if len(stock.restored) != 1 {
		t.Error("stock should still be restored")
	}
}

func TestCancelRejectsShippedOrder(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepo()
	o := seedOrder(repo, userID, StatusShipped, payment.StatusCompleted)
	stock := &fakeStock{}
	pay := &fakePayments{}

	svc := newTestService(repo, stock, pay, nil)
	_, err := svc.Cancel(context.Background(), userID.String(), o.ID.String())
	if !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if len(pay.refunds) != 0 || len(stock.restored) != 0 {
		t.Error("a shipped order must not be refunded or restocked")
	}
}

func TestCancelForbiddenForOtherUser(t *testing.T) {
	repo := newFakeRepo()
	o := seedOrder(repo, uuid.New(), StatusPending, payment.StatusCompleted)
	svc := newTestService(repo, &fakeStock{}, &fakePayments{}, nil)

	_, err := svc.Cancel(context.Background(), uuid.New().String(), o.ID.String())
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestConcurrentCancelRefundsExactlyOnce(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepo()
	o := seedOrder(repo, userID, StatusPending, payment.StatusCompleted)
	stock := &fakeStock{}
	pay := &fakePayments{}
	svc := newTestService(repo, stock, pay, nil)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Cancel(context.Background(), userID.String(), o.ID.String())
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("%d cancels succeeded, want exactly 1", succeeded)
	}
	if len(pay.refunds) != 1 {
		t.Errorf("%d refunds issued, want exactly 1", len(pay.refunds))
	}
}

func TestUpdateStatusByVendor(t *testing.T) {
	vendorUserID := uuid.New()
	repo := newFakeRepo()
	o := seedOrder(repo, uuid.New(), StatusConfirmed, payment.StatusCompleted)
	vendors := &fakeVendors{byUser: map[string]*vendor.Vendor{
		vendorUserID.String(): {ID: o.VendorID},
	}}
	svc := newTestService(repo, &fakeStock{}, &fakePayments{}, vendors)

	updated, err := svc.UpdateStatus(context.Background(), vendorUserID.String(), false, o.ID.String(), StatusProcessing)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != StatusProcessing {
		t.Errorf("status = %s, want PROCESSING", updated.Status)
	}

	// Skipping a step is rejected.
	_, err = svc.UpdateStatus(context.Background(), vendorUserID.String(), false, o.ID.String(), StatusDelivered)
	if !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateStatusForbiddenForStranger(t *testing.T) {
	repo := newFakeRepo()
	o := seedOrder(repo, uuid.New(), StatusConfirmed, payment.StatusCompleted)
	svc := newTestService(repo, &fakeStock{}, &fakePayments{}, nil)

	_, err := svc.UpdateStatus(context.Background(), uuid.New().String(), false, o.ID.String(), StatusProcessing)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
