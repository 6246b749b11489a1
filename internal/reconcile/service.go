package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rogermolina/residencia-backend/internal/bills"
	"github.com/rogermolina/residencia-backend/pkg/enums"
	pkgerrors "github.com/rogermolina/residencia-backend/pkg/errors"
	"github.com/rogermolina/residencia-backend/pkg/logger"
	"github.com/rogermolina/residencia-backend/pkg/metrics"
)

// Outcome is what the gateway reported for a payment attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// EventDetails carries the payment facts extracted from a gateway event.
type EventDetails struct {
	TransactionID string
	AmountCents   int64
	Currency      string
	Method        string
	ErrorMessage  string
}

// ServiceParams groups the reconciler dependencies.
type ServiceParams struct {
	Repo    bills.Repository
	Ledger  *Ledger
	Logger  *logger.Logger
	Metrics *metrics.ReconcileMetrics
}

// Service turns verified gateway events into bill transitions. Every path
// that is not an infrastructure failure ends in success from the caller's
// point of view, so the gateway never retries a benign no-op.
type Service struct {
	repo    bills.Repository
	ledger  *Ledger
	log     *logger.Logger
	metrics *metrics.ReconcileMetrics
}

// NewService builds a reconciler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bill repo required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event ledger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		repo:    params.Repo,
		ledger:  params.Ledger,
		log:     params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Apply processes one verified gateway event. The ledger claim happens
// before any bill read so concurrent deliveries of the same event collapse
// to a single processing attempt. Returned errors are infrastructure
// failures only; duplicates, unknown intents, and lost races are absorbed.
func (s *Service) Apply(ctx context.Context, eventID, intentID string, outcome Outcome, details EventDetails) error {
	started := time.Now()
	ctx = s.log.WithFields(ctx, map[string]any{
		"event_id":  eventID,
		"intent_id": intentID,
		"outcome":   string(outcome),
	})

	fresh, err := s.ledger.RecordIfNew(ctx, eventID)
	if err != nil {
		s.metrics.ObserveApply(metrics.ReconcileResultError, time.Since(started))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record event")
	}
	if !fresh {
		s.log.Debug(ctx, "duplicate gateway event, skipping")
		s.metrics.ObserveApply(metrics.ReconcileResultDuplicate, time.Since(started))
		return nil
	}

	bill, err := s.repo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		s.forget(ctx, eventID)
		s.metrics.ObserveApply(metrics.ReconcileResultError, time.Since(started))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bill by intent")
	}
	if bill == nil {
		// No bill references this intent. Acknowledge and keep the ledger
		// entry so redeliveries stay silent; the orphan report surfaces it.
		s.log.Warn(ctx, "gateway event references unknown intent")
		s.metrics.IncOrphanedIntent()
		s.metrics.ObserveApply(metrics.ReconcileResultUnknownIntent, time.Since(started))
		return nil
	}
	ctx = s.log.WithBillID(ctx, bill.ID.String())

	patch, err := buildPatch(outcome, details)
	if err != nil {
		s.forget(ctx, eventID)
		s.metrics.ObserveApply(metrics.ReconcileResultError, time.Since(started))
		return err
	}

	applied, err := s.repo.UpdateIf(ctx, bill.ID, enums.BillStatusPending, patch)
	if err != nil {
		s.forget(ctx, eventID)
		s.metrics.ObserveApply(metrics.ReconcileResultError, time.Since(started))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply bill transition")
	}
	if !applied {
		// The bill left Pending before we got here. Paid is terminal, so
		// whatever won the race stands and this event is spent.
		s.log.Info(ctx, "bill no longer pending, event superseded")
		s.metrics.ObserveApply(metrics.ReconcileResultSuperseded, time.Since(started))
		return nil
	}

	s.log.Info(ctx, "bill transition applied")
	s.metrics.ObserveApply(metrics.ReconcileResultApplied, time.Since(started))
	return nil
}

func (s *Service) forget(ctx context.Context, eventID string) {
	if err := s.ledger.Forget(ctx, eventID); err != nil {
		s.log.Error(ctx, "failed to release event ledger entry", err)
	}
}

func buildPatch(outcome Outcome, details EventDetails) (map[string]any, error) {
	switch outcome {
	case OutcomeSucceeded:
		amount := decimal.New(details.AmountCents, -2)
		return map[string]any{
			"status":                 enums.BillStatusPaid,
			"paid_at":                time.Now().UTC(),
			"payment_transaction_id": details.TransactionID,
			"payment_amount":         amount,
			"payment_currency":       details.Currency,
			"payment_method":         details.Method,
		}, nil
	case OutcomeFailed:
		message := details.ErrorMessage
		if message == "" {
			message = "payment failed"
		}
		amount := decimal.New(details.AmountCents, -2)
		return map[string]any{
			"status":                 enums.BillStatusFailed,
			"payment_transaction_id": details.TransactionID,
			"payment_amount":         amount,
			"payment_currency":       details.Currency,
			"payment_method":         details.Method,
			"payment_error_message":  message,
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unsupported outcome %q", outcome))
	}
}
