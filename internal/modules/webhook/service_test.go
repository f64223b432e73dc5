package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/bazaarhq/bazaar-backend/internal/modules/payment"
	"github.com/bazaarhq/bazaar-backend/internal/modules/user"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memoryLedger struct {
	seen map[string]bool
}

func (m *memoryLedger) Processed(ctx context.Context, eventID string) (bool, error) {
	return m.seen[eventID], nil
}

func (m *memoryLedger) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

var errTransient = errors.New("store unavailable")

type fakeUsers struct {
	user.Service
	createErr   error // consumed by the next CreateFromIdentity call
	created     int
	updated     int
	deactivated int
	logins      int
}

func (f *fakeUsers) CreateFromIdentity(ctx context.Context, externalID string, p user.Profile) (*user.User, bool, error) {
	if err := f.createErr; err != nil {
		f.createErr = nil
		return nil, false, err
	}
	f.created++
	return &user.User{ID: uuid.New(), ExternalID: externalID, Email: p.Email, Role: p.Role}, true, nil
}

func (f *fakeUsers) UpdateFromIdentity(ctx context.Context, externalID string, p user.Profile) (*user.User, error) {
	f.updated++
	return &user.User{ID: uuid.New(), ExternalID: externalID, Email: p.Email}, nil
}

func (f *fakeUsers) DeactivateFromIdentity(ctx context.Context, externalID string) (*user.User, error) {
	f.deactivated++
	return &user.User{ID: uuid.New(), ExternalID: externalID}, nil
}

func (f *fakeUsers) RecordLogin(ctx context.Context, externalID string) (*user.User, error) {
	f.logins++
	return &user.User{ID: uuid.New(), ExternalID: externalID}, nil
}

type fakeSettler struct {
	settled  []string
	failed   []string
	refunded []string
}

func (f *fakeSettler) ConfirmAndSettle(ctx context.Context, intentID string) ([]payment.SettledOrder, error) {
	f.settled = append(f.settled, intentID)
	return nil, nil
}

func (f *fakeSettler) FailIntent(ctx context.Context, intentID string) error {
	f.failed = append(f.failed, intentID)
	return nil
}

func (f *fakeSettler) SettleRefund(ctx context.Context, intentID string) error {
	f.refunded = append(f.refunded, intentID)
	return nil
}

func newTestService(users *fakeUsers, settler *fakeSettler) Service {
	log := zap.NewNop()
	return NewService(
		&memoryLedger{seen: make(map[string]bool)},
		users, settler,
		cache.NewDisabled(log),
		queue.NewDisabledProducer(log),
		log,
	)
}

func TestIdentityEventDispatch(t *testing.T) {
	users := &fakeUsers{}
	svc := newTestService(users, &fakeSettler{})
	ctx := context.Background()

	events := []struct {
		id      string
		payload string
	}{
		{"evt_1", `{"type":"user.created","data":{"id":"user_a","email_addresses":[{"email_address":"a@example.com"}],"first_name":"Ada"}}`},
		{"evt_2", `{"type":"user.updated","data":{"id":"user_a","email_addresses":[{"email_address":"a@example.com"}]}}`},
		{"evt_3", `{"type":"user.deleted","data":{"id":"user_a"}}`},
		{"evt_4", `{"type":"session.created","data":{"id":"sess_1","user_id":"user_a"}}`},
		{"evt_5", `{"type":"session.ended","data":{"id":"sess_1"}}`},
	}
	for _, ev := range events {
		if err := svc.HandleIdentityEvent(ctx, ev.id, []byte(ev.payload)); err != nil {
			t.Fatalf("event %s: %v", ev.id, err)
		}
	}

	if users.created != 1 || users.updated != 1 || users.deactivated != 1 || users.logins != 1 {
		t.Errorf("dispatch counts = %+v, want one of each", users)
	}
}

func TestIdentityEventReplayIsIgnored(t *testing.T) {
	users := &fakeUsers{}
	svc := newTestService(users, &fakeSettler{})
	ctx := context.Background()
	payload := []byte(`{"type":"user.created","data":{"id":"user_b","email_addresses":[{"email_address":"b@example.com"}]}}`)

	for i := 0; i < 3; i++ {
		if err := svc.HandleIdentityEvent(ctx, "evt_replayed", payload); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if users.created != 1 {
		t.Errorf("created %d users from 3 deliveries, want 1", users.created)
	}
}

func TestRetriedDeliveryAppliesAfterTransientFailure(t *testing.T) {
	users := &fakeUsers{createErr: errTransient}
	svc := newTestService(users, &fakeSettler{})
	ctx := context.Background()
	payload := []byte(`{"type":"user.created","data":{"id":"user_c","email_addresses":[{"email_address":"c@example.com"}]}}`)

	// First delivery hits a transient store failure; the handler must
	// surface the error so the provider retries instead of acking.
	if err := svc.HandleIdentityEvent(ctx, "evt_retry", payload); err == nil {
		t.Fatal("first delivery should fail")
	}
	if users.created != 0 {
		t.Fatalf("created = %d after failed delivery, want 0", users.created)
	}

	// The retry of the same event id must still be applied.
	if err := svc.HandleIdentityEvent(ctx, "evt_retry", payload); err != nil {
		t.Fatalf("retried delivery: %v", err)
	}
	if users.created != 1 {
		t.Errorf("created = %d after retry, want 1", users.created)
	}

	// A third delivery is now a genuine duplicate.
	if err := svc.HandleIdentityEvent(ctx, "evt_retry", payload); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if users.created != 1 {
		t.Errorf("created = %d after duplicate, want 1", users.created)
	}
}

func TestUnknownIdentityEventIsAcknowledged(t *testing.T) {
	svc := newTestService(&fakeUsers{}, &fakeSettler{})
	err := svc.HandleIdentityEvent(context.Background(), "evt_x", []byte(`{"type":"organization.created","data":{}}`))
	if err != nil {
		t.Fatalf("unknown event type should be acknowledged, got %v", err)
	}
}

func TestPaymentSucceededSettlesOnce(t *testing.T) {
	settler := &fakeSettler{}
	svc := newTestService(&fakeUsers{}, settler)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.HandlePaymentSucceeded(ctx, "evt_pay", "pi_1"); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if len(settler.settled) != 1 || settler.settled[0] != "pi_1" {
		t.Errorf("settled = %v, want pi_1 exactly once", settler.settled)
	}
}

func TestPaymentFailedUnwindsOnce(t *testing.T) {
	settler := &fakeSettler{}
	svc := newTestService(&fakeUsers{}, settler)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.HandlePaymentFailed(ctx, "evt_fail", "pi_2"); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if len(settler.failed) != 1 || settler.failed[0] != "pi_2" {
		t.Errorf("failed = %v, want pi_2 exactly once", settler.failed)
	}
}

func TestPaymentRefundedRecordsOnce(t *testing.T) {
	settler := &fakeSettler{}
	svc := newTestService(&fakeUsers{}, settler)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.HandlePaymentRefunded(ctx, "evt_refund", "pi_3"); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if len(settler.refunded) != 1 || settler.refunded[0] != "pi_3" {
		t.Errorf("refunded = %v, want pi_3 exactly once", settler.refunded)
	}
}
