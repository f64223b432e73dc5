package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/bazaarhq/bazaar-backend/pkg/metrics"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
	"go.uber.org/zap"
)

// DefaultCurrency is the platform settlement currency.
const DefaultCurrency = "usd"

// staleAfter is how long an order may sit unpaid before reconciliation
// asks the processor what actually happened.
const staleAfter = 15 * time.Minute

type service struct {
	gateway Gateway
	repo    Repository
	stock   StockRestorer
	jobs    *queue.Producer
	log     *zap.Logger
}

// NewService creates a new payment service.
func NewService(gateway Gateway, repo Repository, stock StockRestorer, jobs *queue.Producer, log *zap.Logger) Service {
	return &service{gateway: gateway, repo: repo, stock: stock, jobs: jobs, log: log}
}

func (s *service) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.KindValidation, "amount must be positive")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return s.gateway.CreateIntent(ctx, amount, currency, metadata)
}

func (s *service) ConfirmAndSettle(ctx context.Context, intentID string) ([]SettledOrder, error) {
	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != IntentSucceeded {
		return nil, apperror.New(apperror.KindConflict, "payment %s has not completed (status %s)", intentID, intent.Status)
	}
	settled, err := s.repo.MarkPaid(ctx, intentID)
	if err != nil {
		return nil, err
	}
	for _, so := range settled {
		metrics.PaymentsSettled.Inc()
		s.jobs.Enqueue(ctx, queue.TopicEmail, so.ID.String(), queue.Job{
			Type: queue.JobOrderConfirmation,
			Data: map[string]string{
				"order_id":     so.ID.String(),
				"order_number": so.OrderNumber,
				"email":        so.Email,
				"total":        strconv.FormatFloat(so.Total, 'f', 2, 64),
			},
		})
	}
	return settled, nil
}

func (s *service) RefundIntent(ctx context.Context, intentID string, amount float64) (*Refund, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.KindValidation, "refund amount must be positive")
	}
	return s.gateway.RefundIntent(ctx, intentID, amount)
}

func (s *service) FailIntent(ctx context.Context, intentID string) error {
	orderIDs, err := s.repo.MarkFailed(ctx, intentID)
	if err != nil {
		return err
	}
	if len(orderIDs) == 0 {
		return nil
	}
	items, err := s.repo.ItemsForOrders(ctx, orderIDs)
	if err != nil {
		return err
	}
	s.stock.RestoreAll(ctx, items)
	s.log.Info("failed payment unwound",
		zap.String("intent_id", intentID),
		zap.Int("orders", len(orderIDs)))
	return nil
}

func (s *service) SettleRefund(ctx context.Context, intentID string) error {
	orderIDs, err := s.repo.MarkRefunded(ctx, intentID)
	if err != nil {
		return err
	}
	if len(orderIDs) > 0 {
		s.log.Info("refund settled",
			zap.String("intent_id", intentID),
			zap.Int("orders", len(orderIDs)))
	}
	return nil
}

func (s *service) PayoutVendor(ctx context.Context, vendorID string, amount float64) (*Transfer, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.KindValidation, "payout amount must be positive")
	}
	account, commission, err := s.repo.VendorPayoutAccount(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if account == "" {
		return nil, fmt.Errorf("vendor %s: %w", vendorID, apperror.ErrNoPayoutAccount)
	}
	net := amount * (1 - commission)
	tr, err := s.gateway.Payout(ctx, account, net, DefaultCurrency)
	if err != nil {
		return nil, err
	}
	s.log.Info("vendor payout sent",
		zap.String("vendor_id", vendorID),
		zap.String("transfer_id", tr.ID),
		zap.Float64("gross", amount),
		zap.Float64("net", net))
	return tr, nil
}

func (s *service) Reconcile(ctx context.Context) error {
	intents, err := s.repo.StaleIntents(ctx, staleAfter)
	if err != nil {
		return err
	}
	for _, intentID := range intents {
		intent, err := s.gateway.GetIntent(ctx, intentID)
		if err != nil {
			s.log.Warn("reconcile: intent lookup failed", zap.String("intent_id", intentID), zap.Error(err))
			continue
		}
		switch intent.Status {
		case IntentSucceeded:
			if _, err := s.ConfirmAndSettle(ctx, intentID); err != nil {
				s.log.Error("reconcile: settle failed", zap.String("intent_id", intentID), zap.Error(err))
				continue
			}
			s.log.Info("reconcile: settled stale intent", zap.String("intent_id", intentID))
		case IntentCanceled:
			if err := s.FailIntent(ctx, intentID); err != nil {
				s.log.Error("reconcile: fail intent", zap.String("intent_id", intentID), zap.Error(err))
				continue
			}
			s.log.Info("reconcile: cancelled stale intent", zap.String("intent_id", intentID))
		default:
			// Still in flight; leave it for the next sweep.
		}
	}

	// Cancelled orders whose refund call failed stay owed until a sweep
	// pushes the refund through. RefundIntent on the processor side is
	// safe to retry; a refund that already went through comes back as
	// already-refunded and the order is closed out either way.
	pending, err := s.repo.PendingRefunds(ctx)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if _, err := s.gateway.RefundIntent(ctx, p.IntentID, p.Amount); err != nil {
			s.log.Error("reconcile: refund retry failed",
				zap.String("order_id", p.OrderID.String()),
				zap.String("intent_id", p.IntentID),
				zap.Error(err))
			continue
		}
		if err := s.repo.MarkOrderRefunded(ctx, p.OrderID); err != nil {
			s.log.Error("reconcile: mark refunded", zap.String("order_id", p.OrderID.String()), zap.Error(err))
			continue
		}
		metrics.RefundsIssued.Inc()
		s.log.Info("reconcile: finished pending refund",
			zap.String("order_id", p.OrderID.String()),
			zap.String("intent_id", p.IntentID))
	}
	return nil
}
