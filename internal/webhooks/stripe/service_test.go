package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v84"
)

type stubOrders struct {
	outcome orders.PaymentOutcome
	err     error
	refs    []string
}

func (s *stubOrders) MarkPaid(ctx context.Context, paymentRef string) (orders.PaymentOutcome, *models.Order, error) {
	s.refs = append(s.refs, paymentRef)
	if s.err != nil {
		return "", nil, s.err
	}
	return s.outcome, &models.Order{ID: uuid.New()}, nil
}

type memoryStore struct {
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func newTestService(t *testing.T, ordersSvc *stubOrders) (*Service, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "webhook-test", Level: zerolog.ErrorLevel})
	service, err := NewService(ServiceParams{Orders: ordersSvc, Guard: guard, Logger: logg})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service, store
}

func paymentEvent(t *testing.T, eventID, eventType, intentID string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(&stripe.PaymentIntent{ID: intentID})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{
		ID:   eventID,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestService_HandlePaymentSucceededMarksOrderPaid(t *testing.T) {
	ordersSvc := &stubOrders{outcome: orders.PaymentApplied}
	service, _ := newTestService(t, ordersSvc)

	event := paymentEvent(t, "evt_1", "payment_intent.succeeded", "pi_123")
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(ordersSvc.refs) != 1 || ordersSvc.refs[0] != "pi_123" {
		t.Fatalf("expected MarkPaid with pi_123, got %v", ordersSvc.refs)
	}
}

func TestService_ReplayedEventSkipsProcessing(t *testing.T) {
	ordersSvc := &stubOrders{outcome: orders.PaymentApplied}
	service, _ := newTestService(t, ordersSvc)

	event := paymentEvent(t, "evt_dup", "payment_intent.succeeded", "pi_123")
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(ordersSvc.refs) != 1 {
		t.Fatalf("expected exactly one MarkPaid call, got %d", len(ordersSvc.refs))
	}
}

func TestService_FailedProcessingReleasesClaim(t *testing.T) {
	ordersSvc := &stubOrders{err: errors.New("db down")}
	service, store := newTestService(t, ordersSvc)

	event := paymentEvent(t, "evt_retry", "payment_intent.succeeded", "pi_456")
	if err := service.HandleEvent(context.Background(), event); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := store.keys["stripe:evt_retry"]; ok {
		t.Fatalf("expected idempotency claim released for retry")
	}

	// the gateway retries and this time the order side works
	ordersSvc.err = nil
	ordersSvc.outcome = orders.PaymentApplied
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("retry delivery: %v", err)
	}
	if len(ordersSvc.refs) != 2 {
		t.Fatalf("expected two MarkPaid attempts, got %d", len(ordersSvc.refs))
	}
}

func TestService_NonActionableOutcomesStillAck(t *testing.T) {
	for _, outcome := range []orders.PaymentOutcome{
		orders.PaymentDuplicate,
		orders.PaymentOrderNotFound,
		orders.PaymentIgnored,
		orders.PaymentHeldForReview,
	} {
		ordersSvc := &stubOrders{outcome: outcome}
		service, _ := newTestService(t, ordersSvc)
		event := paymentEvent(t, "evt_"+string(outcome), "payment_intent.succeeded", "pi_789")
		if err := service.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("outcome %s: %v", outcome, err)
		}
	}
}

func TestService_PaymentFailedIsLogOnly(t *testing.T) {
	ordersSvc := &stubOrders{}
	service, _ := newTestService(t, ordersSvc)

	event := paymentEvent(t, "evt_fail", "payment_intent.payment_failed", "pi_999")
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(ordersSvc.refs) != 0 {
		t.Fatalf("payment_failed must not touch orders")
	}
}

func TestService_UnknownEventTypeAcked(t *testing.T) {
	ordersSvc := &stubOrders{}
	service, _ := newTestService(t, ordersSvc)

	event := &stripe.Event{ID: "evt_misc", Type: "charge.refunded", Data: &stripe.EventData{Raw: json.RawMessage(`{}`)}}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(ordersSvc.refs) != 0 {
		t.Fatalf("unexpected orders call")
	}
}
