package order

import (
	"context"
	"fmt"

	"github.com/bazaarhq/bazaar-backend/internal/modules/inventory"
	"github.com/bazaarhq/bazaar-backend/internal/modules/payment"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/bazaarhq/bazaar-backend/pkg/metrics"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type service struct {
	repo     Repository
	stock    StockReserver
	payments PaymentProcessor
	vendors  VendorDirectory
	jobs     *queue.Producer
	log      *zap.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, stock StockReserver, payments PaymentProcessor, vendors VendorDirectory, jobs *queue.Producer, log *zap.Logger) Service {
	return &service{repo: repo, stock: stock, payments: payments, vendors: vendors, jobs: jobs, log: log}
}

func (s *service) Checkout(ctx context.Context, userID string, in CheckoutInput) (*CheckoutResult, error) {
	if in.ShippingCost < 0 {
		return nil, apperror.New(apperror.KindValidation, "shipping cost cannot be negative")
	}
	shipping := in.ShippingCost
	if shipping == 0 {
		shipping = FlatShippingRate
	}

	lines, err := s.repo.CartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		metrics.CheckoutFailures.WithLabelValues("empty_cart").Inc()
		return nil, apperror.ErrEmptyCart
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "invalid user id")
	}
	shipAddr, err := parseOptionalUUID(in.ShippingAddressID, "shipping address id")
	if err != nil {
		return nil, err
	}
	billAddr, err := parseOptionalUUID(in.BillingAddressID, "billing address id")
	if err != nil {
		return nil, err
	}

	drafts, grandTotal := buildDrafts(uid, lines, shipping, in.Notes)
	for _, d := range drafts {
		d.ShippingAddressID = shipAddr
		d.BillingAddressID = billAddr
	}

	// The intent is opened before stock moves: if the processor is down
	// there is nothing to compensate yet.
	intent, err := s.payments.CreateIntent(ctx, grandTotal, payment.DefaultCurrency, map[string]string{
		"user_id": userID,
	})
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues("payment_intent").Inc()
		return nil, err
	}
	for _, d := range drafts {
		d.PaymentIntentID = intent.ID
	}

	reservations := make([]inventory.Reservation, 0, len(lines))
	for _, l := range lines {
		reservations = append(reservations, inventory.Reservation{
			ProductID: l.ProductID.String(),
			Quantity:  l.Quantity,
		})
	}
	if err := s.stock.ReserveAll(ctx, reservations); err != nil {
		metrics.CheckoutFailures.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	}

	if err := s.repo.CreateOrders(ctx, drafts, userID); err != nil {
		// The reservation already happened, so the failed persist must
		// give the stock back before surfacing the error.
		s.stock.RestoreAll(ctx, reservations)
		metrics.CheckoutFailures.WithLabelValues("persist").Inc()
		return nil, err
	}

	for _, d := range drafts {
		metrics.OrdersCreated.Inc()
		s.log.Info("order created",
			zap.String("order_number", d.OrderNumber),
			zap.String("vendor_id", d.VendorID.String()),
			zap.Float64("total", d.Total))
	}

	return &CheckoutResult{
		Orders:       drafts,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Total:        grandTotal,
	}, nil
}

// buildDrafts splits the cart into one order per vendor and prices each.
// Tax is charged on merchandise only; shipping is charged once per vendor
// shipment.
func buildDrafts(userID uuid.UUID, lines []CartLine, shipping float64, notes string) ([]*Order, float64) {
	byVendor := make(map[uuid.UUID][]CartLine)
	var vendorOrder []uuid.UUID
	for _, l := range lines {
		if _, seen := byVendor[l.VendorID]; !seen {
			vendorOrder = append(vendorOrder, l.VendorID)
		}
		byVendor[l.VendorID] = append(byVendor[l.VendorID], l)
	}

	var drafts []*Order
	var grandTotal float64
	for _, vendorID := range vendorOrder {
		o := &Order{
			ID:            uuid.New(),
			UserID:        userID,
			VendorID:      vendorID,
			Status:        StatusPending,
			PaymentStatus: payment.StatusPending,
			ShippingCost:  shipping,
			Notes:         notes,
		}
		for _, l := range byVendor[vendorID] {
			lineTotal := round2(l.UnitPrice * float64(l.Quantity))
			o.Items = append(o.Items, &Item{
				ID:         uuid.New(),
				OrderID:    o.ID,
				ProductID:  l.ProductID,
				Quantity:   l.Quantity,
				UnitPrice:  l.UnitPrice,
				TotalPrice: lineTotal,
			})
			o.Subtotal += lineTotal
		}
		o.Subtotal = round2(o.Subtotal)
		o.Tax = round2(o.Subtotal * TaxRate)
		o.Total = round2(o.Subtotal + o.ShippingCost + o.Tax)
		grandTotal += o.Total
		drafts = append(drafts, o)
	}
	return drafts, round2(grandTotal)
}

func parseOptionalUUID(s, what string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "invalid "+what)
	}
	return &id, nil
}

func (s *service) Get(ctx context.Context, callerID string, admin bool, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if admin || o.UserID.String() == callerID {
		return o, nil
	}
	if v, err := s.vendors.GetByUserID(ctx, callerID); err == nil && v.ID == o.VendorID {
		return o, nil
	}
	return nil, fmt.Errorf("order %s: %w", orderID, apperror.ErrForbidden)
}

func (s *service) ListMine(ctx context.Context, userID string) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListForVendor(ctx context.Context, vendorUserID string) ([]*Order, error) {
	v, err := s.vendors.GetByUserID(ctx, vendorUserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByVendor(ctx, v.ID.String())
}

func (s *service) UpdateStatus(ctx context.Context, callerID string, admin bool, orderID string, to OrderStatus) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin {
		v, err := s.vendors.GetByUserID(ctx, callerID)
		if err != nil || v.ID != o.VendorID {
			return nil, fmt.Errorf("order %s: %w", orderID, apperror.ErrForbidden)
		}
	}
	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, to, apperror.ErrInvalidTransition)
	}

	updated, ok, err := s.repo.UpdateStatus(ctx, orderID, o.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else moved the order between our read and write.
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, to, apperror.ErrInvalidTransition)
	}

	s.notifyStatus(ctx, updated)
	if to == StatusDelivered {
		s.jobs.Enqueue(ctx, queue.TopicAnalytics, updated.ID.String(), queue.Job{
			Type: queue.JobOrderCompleted,
			Data: map[string]string{
				"order_id":     updated.ID.String(),
				"order_number": updated.OrderNumber,
				"vendor_id":    updated.VendorID.String(),
			},
		})
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID.String() != userID {
		return nil, fmt.Errorf("order %s: %w", orderID, apperror.ErrForbidden)
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("cancel from %s: %w", o.Status, apperror.ErrInvalidTransition)
	}

	// The conditional update is the cancellation lock: of two racing
	// cancels (or a cancel racing a confirm), exactly one wins and only
	// the winner refunds and restocks.
	updated, ok, err := s.repo.UpdateStatus(ctx, orderID, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cancel: %w", apperror.ErrInvalidTransition)
	}

	// Stock comes back the moment the cancellation wins; how the refund
	// goes has no bearing on the reservation.
	items := make([]inventory.Reservation, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, inventory.Reservation{
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
		})
	}
	s.stock.RestoreAll(ctx, items)

	if o.PaymentStatus == payment.StatusCompleted {
		// REFUND_PENDING goes in before the gateway call so a refund that
		// fails here is visible to the reconcile sweep, which retries it.
		if err := s.repo.SetPaymentStatus(ctx, orderID, payment.StatusRefundPending); err != nil {
			return nil, err
		}
		updated.PaymentStatus = payment.StatusRefundPending

		if _, err := s.payments.RefundIntent(ctx, o.PaymentIntentID, o.Total); err != nil {
			s.log.Error("refund failed, left for reconcile",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err))
		} else {
			if err := s.repo.SetPaymentStatus(ctx, orderID, payment.StatusRefunded); err != nil {
				return nil, err
			}
			updated.PaymentStatus = payment.StatusRefunded
		}
	}

	s.notifyStatus(ctx, updated)
	return updated, nil
}

func (s *service) notifyStatus(ctx context.Context, o *Order) {
	data := map[string]string{
		"order_id":     o.ID.String(),
		"order_number": o.OrderNumber,
		"status":       string(o.Status),
		"email":        o.CustomerEmail,
	}
	s.jobs.Enqueue(ctx, queue.TopicEmail, o.ID.String(), queue.Job{
		Type: queue.JobOrderStatusEmail,
		Data: data,
	})
	s.jobs.Enqueue(ctx, queue.TopicNotification, o.ID.String(), queue.Job{
		Type: queue.JobOrderStatusNotify,
		Data: data,
	})
}
