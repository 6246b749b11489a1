package bills

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rogermolina/residencia-backend/pkg/db/models"
	"github.com/rogermolina/residencia-backend/pkg/enums"
	pkgerrors "github.com/rogermolina/residencia-backend/pkg/errors"
)

// ServiceParams groups dependencies for the bill service.
type ServiceParams struct {
	Repo Repository
}

// Service orchestrates bill issuing and queries.
type Service struct {
	repo Repository
}

// NewService builds a bill service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bill repo required")
	}
	return &Service{repo: params.Repo}, nil
}

// CreateBillInput carries the fields an administrator supplies when issuing a bill.
type CreateBillInput struct {
	ResidentID  uuid.UUID
	Amount      decimal.Decimal
	Description string
	DueDate     time.Time
}

// Create issues a new bill in Pending with no intent attached.
func (s *Service) Create(ctx context.Context, input CreateBillInput) (*models.Bill, error) {
	if input.ResidentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resident id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if input.DueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date is required")
	}

	bill := &models.Bill{
		ID:          uuid.New(),
		ResidentID:  input.ResidentID,
		Amount:      input.Amount,
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate,
		Status:      enums.BillStatusPending,
	}
	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bill")
	}
	return bill, nil
}

// GetByID loads a single bill.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	bill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bill")
	}
	if bill == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bill not found")
	}
	return bill, nil
}

// ListByResident returns a resident's bills, newest due date first. A non-nil
// status narrows the listing to bills in that state.
func (s *Service) ListByResident(ctx context.Context, residentID uuid.UUID, status *enums.BillStatus) ([]models.Bill, error) {
	list, err := s.repo.ListByResident(ctx, residentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bills")
	}
	if status == nil {
		return list, nil
	}
	filtered := make([]models.Bill, 0, len(list))
	for _, bill := range list {
		if bill.Status == *status {
			filtered = append(filtered, bill)
		}
	}
	return filtered, nil
}

// PaymentStatus is the read model for a bill's payment progress.
type PaymentStatus struct {
	BillID          uuid.UUID             `json:"billId"`
	Status          enums.BillStatus      `json:"status"`
	PaymentIntentID *string               `json:"paymentIntentId,omitempty"`
	PaidAt          *time.Time            `json:"paidAt,omitempty"`
	PaymentDetails  models.PaymentDetails `json:"paymentDetails"`
}

// GetPaymentStatus returns the payment view of a bill, enforcing that
// residents can only read their own bills.
func (s *Service) GetPaymentStatus(ctx context.Context, id, requesterID uuid.UUID, role enums.UserRole) (*PaymentStatus, error) {
	bill, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != enums.UserRoleAdmin && bill.ResidentID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bill belongs to another resident")
	}
	return &PaymentStatus{
		BillID:          bill.ID,
		Status:          bill.Status,
		PaymentIntentID: bill.PaymentIntentID,
		PaidAt:          bill.PaidAt,
		PaymentDetails:  bill.PaymentDetails,
	}, nil
}
