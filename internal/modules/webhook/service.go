package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bazaarhq/bazaar-backend/internal/modules/payment"
	"github.com/bazaarhq/bazaar-backend/internal/modules/user"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/bazaarhq/bazaar-backend/pkg/metrics"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
	"go.uber.org/zap"
)

// PaymentSettler is the slice of the payment module the processor's
// webhooks drive.
type PaymentSettler interface {
	ConfirmAndSettle(ctx context.Context, intentID string) ([]payment.SettledOrder, error)
	FailIntent(ctx context.Context, intentID string) error
	SettleRefund(ctx context.Context, intentID string) error
}

// Service processes verified webhook deliveries.
type Service interface {
	// HandleIdentityEvent applies one identity-provider delivery. Replays
	// of an already-processed delivery id are acknowledged without effect.
	HandleIdentityEvent(ctx context.Context, eventID string, payload []byte) error

	// HandlePaymentSucceeded settles the orders under the intent.
	HandlePaymentSucceeded(ctx context.Context, eventID, intentID string) error

	// HandlePaymentFailed cancels the orders under the intent and restocks.
	HandlePaymentFailed(ctx context.Context, eventID, intentID string) error

	// HandlePaymentRefunded records a processor-side refund.
	HandlePaymentRefunded(ctx context.Context, eventID, intentID string) error
}

type service struct {
	repo     Repository
	users    user.Service
	payments PaymentSettler
	cache    *cache.Cache
	jobs     *queue.Producer
	log      *zap.Logger
}

// NewService creates a new webhook service.
func NewService(repo Repository, users user.Service, payments PaymentSettler, c *cache.Cache, jobs *queue.Producer, log *zap.Logger) Service {
	return &service{repo: repo, users: users, payments: payments, cache: c, jobs: jobs, log: log}
}

func (s *service) HandleIdentityEvent(ctx context.Context, eventID string, payload []byte) error {
	var ev identityEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		metrics.WebhookEvents.WithLabelValues("identity", "unparseable", "error").Inc()
		return fmt.Errorf("decode identity event: %w", err)
	}
	return s.applyOnce(ctx, "identity", eventID, ev.Type, func(ctx context.Context) error {
		return s.applyIdentityEvent(ctx, ev)
	})
}

// applyOnce runs apply for a delivery that has not been seen before and
// records it afterwards. The ledger write comes last: if apply fails the
// delivery stays unrecorded, so the provider's retry is processed rather
// than mistaken for a duplicate. The operations behind apply are
// idempotent, which makes the re-run on retry safe.
func (s *service) applyOnce(ctx context.Context, provider, eventID, eventType string, apply func(context.Context) error) error {
	seen, err := s.repo.Processed(ctx, eventID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(provider, eventType, "error").Inc()
		return err
	}
	if seen {
		metrics.WebhookEvents.WithLabelValues(provider, eventType, "duplicate").Inc()
		s.log.Debug("duplicate webhook delivery skipped", zap.String("event_id", eventID))
		return nil
	}

	if err := apply(ctx); err != nil {
		metrics.WebhookEvents.WithLabelValues(provider, eventType, "error").Inc()
		return err
	}

	if _, err := s.repo.MarkProcessed(ctx, eventID, eventType); err != nil {
		metrics.WebhookEvents.WithLabelValues(provider, eventType, "error").Inc()
		return err
	}
	metrics.WebhookEvents.WithLabelValues(provider, eventType, "processed").Inc()
	return nil
}

func (s *service) applyIdentityEvent(ctx context.Context, ev identityEvent) error {
	switch ev.Type {
	case "user.created":
		p := user.Profile{
			Email:     ev.email(),
			FirstName: ev.Data.FirstName,
			LastName:  ev.Data.LastName,
			AvatarURL: ev.Data.ImageURL,
			Role:      user.ParseRole(ev.Data.PublicMetadata.Role),
		}
		u, created, err := s.users.CreateFromIdentity(ctx, ev.Data.ID, p)
		if err != nil {
			return err
		}
		if created {
			s.jobs.Enqueue(ctx, queue.TopicEmail, u.ID.String(), queue.Job{
				Type: queue.JobWelcomeEmail,
				Data: map[string]string{
					"email":      u.Email,
					"first_name": u.FirstName,
				},
			})
		}
		return nil

	case "user.updated":
		p := user.Profile{
			Email:     ev.email(),
			FirstName: ev.Data.FirstName,
			LastName:  ev.Data.LastName,
			AvatarURL: ev.Data.ImageURL,
			Role:      user.ParseRole(ev.Data.PublicMetadata.Role),
		}
		_, err := s.users.UpdateFromIdentity(ctx, ev.Data.ID, p)
		return err

	case "user.deleted":
		_, err := s.users.DeactivateFromIdentity(ctx, ev.Data.ID)
		return err

	case "session.created":
		u, err := s.users.RecordLogin(ctx, ev.Data.UserID)
		if err != nil {
			return err
		}
		projection, err := json.Marshal(map[string]string{
			"user_id": u.ID.String(),
			"email":   u.Email,
			"role":    string(u.Role),
		})
		if err != nil {
			return err
		}
		s.cache.Set(ctx, cache.SessionKey(ev.Data.ID), projection, cache.SessionTTL)
		return nil

	case "session.ended":
		s.cache.Delete(ctx, cache.SessionKey(ev.Data.ID))
		return nil

	default:
		// Unknown types are acknowledged so the provider stops retrying.
		s.log.Info("unhandled identity event type", zap.String("type", ev.Type))
		return nil
	}
}

func (s *service) HandlePaymentSucceeded(ctx context.Context, eventID, intentID string) error {
	return s.applyOnce(ctx, "stripe", eventID, "payment_intent.succeeded", func(ctx context.Context) error {
		_, err := s.payments.ConfirmAndSettle(ctx, intentID)
		return err
	})
}

func (s *service) HandlePaymentFailed(ctx context.Context, eventID, intentID string) error {
	return s.applyOnce(ctx, "stripe", eventID, "payment_intent.payment_failed", func(ctx context.Context) error {
		return s.payments.FailIntent(ctx, intentID)
	})
}

func (s *service) HandlePaymentRefunded(ctx context.Context, eventID, intentID string) error {
	return s.applyOnce(ctx, "stripe", eventID, "charge.refunded", func(ctx context.Context) error {
		return s.payments.SettleRefund(ctx, intentID)
	})
}
