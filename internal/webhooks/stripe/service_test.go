package stripewebhook

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/rogermolina/residencia-backend/internal/reconcile"
	"github.com/rogermolina/residencia-backend/pkg/logger"
)

func newTestService(t *testing.T, rec *stubReconciler) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Reconciler: rec,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service
}

type stubReconciler struct {
	calls []appliedCall
	err   error
}

type appliedCall struct {
	eventID  string
	intentID string
	outcome  reconcile.Outcome
	details  reconcile.EventDetails
}

func (s *stubReconciler) Apply(_ context.Context, eventID, intentID string, outcome reconcile.Outcome, details reconcile.EventDetails) error {
	s.calls = append(s.calls, appliedCall{eventID: eventID, intentID: intentID, outcome: outcome, details: details})
	return s.err
}

func intentEvent(t *testing.T, eventType stripe.EventType, pi *stripe.PaymentIntent) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(pi)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_test",
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestService_HandlePaymentIntentSucceeded(t *testing.T) {
	rec := &stubReconciler{}
	service := newTestService(t, rec)

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{
		ID:                 "pi_test",
		Amount:             12050,
		Currency:           stripe.CurrencyUSD,
		PaymentMethodTypes: []string{"card"},
		LatestCharge:       &stripe.Charge{ID: "ch_test"},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected one reconcile call, got %d", len(rec.calls))
	}
	call := rec.calls[0]
	if call.eventID != "evt_test" || call.intentID != "pi_test" {
		t.Fatalf("unexpected ids: %+v", call)
	}
	if call.outcome != reconcile.OutcomeSucceeded {
		t.Fatalf("expected succeeded outcome, got %s", call.outcome)
	}
	if call.details.TransactionID != "ch_test" {
		t.Fatalf("expected latest charge as transaction, got %s", call.details.TransactionID)
	}
	if call.details.AmountCents != 12050 || call.details.Currency != "usd" || call.details.Method != "card" {
		t.Fatalf("unexpected details: %+v", call.details)
	}
}

func TestService_HandlePaymentIntentFailed(t *testing.T) {
	rec := &stubReconciler{}
	service := newTestService(t, rec)

	event := intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, &stripe.PaymentIntent{
		ID:               "pi_test",
		Amount:           12050,
		Currency:         stripe.CurrencyUSD,
		LastPaymentError: &stripe.Error{Msg: "card declined"},
	})

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected one reconcile call, got %d", len(rec.calls))
	}
	call := rec.calls[0]
	if call.outcome != reconcile.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", call.outcome)
	}
	if call.details.ErrorMessage != "card declined" {
		t.Fatalf("expected error message forwarded, got %q", call.details.ErrorMessage)
	}
}

func TestService_HandleIgnoredEventType(t *testing.T) {
	rec := &stubReconciler{}
	service := newTestService(t, rec)

	event := &stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventTypeChargeRefunded,
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no reconcile calls, got %d", len(rec.calls))
	}
}

// Malformed payloads on verified events are acknowledged, never bounced:
// redelivery cannot improve them, so a non-success status would just make
// the gateway retry forever.

func TestService_HandleEventMissingDataAcknowledged(t *testing.T) {
	rec := &stubReconciler{}
	service := newTestService(t, rec)

	event := &stripe.Event{ID: "evt_bad", Type: stripe.EventTypePaymentIntentSucceeded}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected acknowledgement, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no reconcile calls, got %d", len(rec.calls))
	}
}

func TestService_HandleEventUndecodablePayloadAcknowledged(t *testing.T) {
	rec := &stubReconciler{}
	service := newTestService(t, rec)

	event := &stripe.Event{
		ID:   "evt_bad",
		Type: stripe.EventTypePaymentIntentPaymentFailed,
		Data: &stripe.EventData{Raw: []byte(`{not json`)},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected acknowledgement, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no reconcile calls, got %d", len(rec.calls))
	}
}

func TestService_HandleEventMissingIntentIDAcknowledged(t *testing.T) {
	rec := &stubReconciler{}
	service := newTestService(t, rec)

	event := &stripe.Event{
		ID:   "evt_bad",
		Type: stripe.EventTypePaymentIntentSucceeded,
		Data: &stripe.EventData{Raw: []byte(`{"id":""}`)},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected acknowledgement, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no reconcile calls")
	}
}
