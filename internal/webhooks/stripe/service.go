package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/rogermolina/residencia-backend/internal/reconcile"
	pkgerrors "github.com/rogermolina/residencia-backend/pkg/errors"
	"github.com/rogermolina/residencia-backend/pkg/logger"
)

type reconciler interface {
	Apply(ctx context.Context, eventID, intentID string, outcome reconcile.Outcome, details reconcile.EventDetails) error
}

type ServiceParams struct {
	Reconciler reconciler
	Logger     *logger.Logger
}

// Service translates verified Stripe events into reconciler calls. Event
// types the platform does not care about are acknowledged without work, and
// so is a verified event whose payload will not decode: redelivering it can
// never improve it, so returning an error would only make the gateway retry
// forever. Only reconciler infrastructure failures propagate.
type Service struct {
	reconciler reconciler
	log        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{reconciler: params.Reconciler, log: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stripe event required")
	}
	ctx = s.log.WithField(ctx, "stripe_event_id", event.ID)

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		pi, ok := s.decodeIntent(ctx, event)
		if !ok {
			return nil
		}
		return s.reconciler.Apply(ctx, event.ID, pi.ID, reconcile.OutcomeSucceeded, detailsFromIntent(pi))
	case stripe.EventTypePaymentIntentPaymentFailed:
		pi, ok := s.decodeIntent(ctx, event)
		if !ok {
			return nil
		}
		return s.reconciler.Apply(ctx, event.ID, pi.ID, reconcile.OutcomeFailed, detailsFromIntent(pi))
	default:
		return nil
	}
}

// decodeIntent extracts the payment intent from a verified event. A payload
// that does not decode or carries no intent id is logged and dropped.
func (s *Service) decodeIntent(ctx context.Context, event *stripe.Event) (*stripe.PaymentIntent, bool) {
	if event.Data == nil {
		s.log.Warn(ctx, "verified stripe event carries no data, dropping")
		return nil, false
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		s.log.Error(ctx, "verified stripe event payload does not decode, dropping", err)
		return nil, false
	}
	if pi.ID == "" {
		s.log.Warn(ctx, "verified stripe event misses the payment intent id, dropping")
		return nil, false
	}
	return &pi, true
}

func detailsFromIntent(pi *stripe.PaymentIntent) reconcile.EventDetails {
	details := reconcile.EventDetails{
		TransactionID: pi.ID,
		AmountCents:   pi.Amount,
		Currency:      string(pi.Currency),
	}
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		details.TransactionID = pi.LatestCharge.ID
	}
	if len(pi.PaymentMethodTypes) > 0 {
		details.Method = pi.PaymentMethodTypes[0]
	}
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		details.ErrorMessage = pi.LastPaymentError.Msg
	}
	return details
}
