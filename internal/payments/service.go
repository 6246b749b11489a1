package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/rogermolina/residencia-backend/internal/bills"
	"github.com/rogermolina/residencia-backend/pkg/enums"
	pkgerrors "github.com/rogermolina/residencia-backend/pkg/errors"
	"github.com/rogermolina/residencia-backend/pkg/logger"
	"github.com/rogermolina/residencia-backend/pkg/metrics"
	"github.com/rogermolina/residencia-backend/pkg/stripe"
)

// Gateway is the slice of the payment gateway the issuer needs.
type Gateway interface {
	CreateIntent(ctx context.Context, params stripe.IntentParams) (*stripe.Intent, error)
}

// ServiceParams groups intent issuer dependencies.
type ServiceParams struct {
	Repo    bills.Repository
	Gateway Gateway
	Logger  *logger.Logger
	Metrics *metrics.ReconcileMetrics
}

// Service issues gateway payment intents for bills. Creating the intent at
// the gateway and attaching it to the bill are two separate operations; the
// attach is a single compare-and-set and its failure leaves the gateway
// intent orphaned, to be surfaced by the orphan report rather than healed
// here.
type Service struct {
	repo    bills.Repository
	gateway Gateway
	log     *logger.Logger
	metrics *metrics.ReconcileMetrics
}

// NewService builds an intent issuer.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bill repo required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		repo:    params.Repo,
		gateway: params.Gateway,
		log:     params.Logger,
		metrics: params.Metrics,
	}, nil
}

// IntentResult is returned to the client to drive the gateway's checkout
// flow on the frontend.
type IntentResult struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
}

// IssueIntent creates a gateway payment intent for the bill and attaches it.
// Residents may only pay their own bills. A Paid bill or a bill that already
// carries an unresolved intent is a conflict, reported without touching the
// gateway.
func (s *Service) IssueIntent(ctx context.Context, billID, requesterID uuid.UUID, role enums.UserRole) (*IntentResult, error) {
	ctx = s.log.WithBillID(ctx, billID.String())

	bill, err := s.repo.FindByID(ctx, billID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bill")
	}
	if bill == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bill not found")
	}
	if role != enums.UserRoleAdmin && bill.ResidentID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bill belongs to another resident")
	}
	if bill.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "bill is already paid")
	}
	if bill.Status != enums.BillStatusPending && !bill.Status.CanTransitionTo(enums.BillStatusPending) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "bill cannot accept a new payment intent")
	}
	if bill.Status == enums.BillStatusPending && bill.PaymentIntentID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "bill already has a payment intent in flight")
	}

	cents := bill.Amount.Shift(2).IntPart()
	intent, err := s.gateway.CreateIntent(ctx, stripe.IntentParams{
		AmountCents: cents,
		Description: bill.Description,
		Metadata: map[string]string{
			stripe.MetadataBillID: bill.ID.String(),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	ctx = s.log.WithField(ctx, "intent_id", intent.ID)

	// A Failed bill retries by going back to Pending with the fresh intent
	// and a clean payment slate.
	patch := map[string]any{
		"status":            enums.BillStatusPending,
		"payment_intent_id": intent.ID,
	}
	if bill.Status == enums.BillStatusFailed {
		patch["paid_at"] = nil
		patch["payment_transaction_id"] = nil
		patch["payment_amount"] = nil
		patch["payment_currency"] = nil
		patch["payment_method"] = nil
		patch["payment_error_message"] = nil
	}

	// The Failed retry overwrites the spent intent, so its CAS rides on the
	// status flip alone. A first attach requires the intent column to still
	// be empty, making concurrent attaches to the same bill collapse to one
	// winner inside the database.
	var attached bool
	if bill.Status == enums.BillStatusFailed {
		attached, err = s.repo.UpdateIf(ctx, bill.ID, enums.BillStatusFailed, patch)
	} else {
		attached, err = s.repo.AttachIntentIf(ctx, bill.ID, enums.BillStatusPending, patch)
	}
	if err != nil {
		s.warnOrphan(ctx)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment intent")
	}
	if !attached {
		// The bill changed under us. The intent now dangles at the gateway
		// until the orphan report picks it up.
		s.warnOrphan(ctx)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "bill state changed while issuing intent")
	}

	s.log.Info(ctx, "payment intent attached to bill")
	return &IntentResult{PaymentIntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (s *Service) warnOrphan(ctx context.Context) {
	s.log.Warn(ctx, "gateway intent left unattached")
	s.metrics.IncOrphanedIntent()
}
