package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rogermolina/residencia-backend/api/middleware"
	"github.com/rogermolina/residencia-backend/api/responses"
	"github.com/rogermolina/residencia-backend/api/validators"
	"github.com/rogermolina/residencia-backend/internal/bills"
	"github.com/rogermolina/residencia-backend/pkg/enums"
	pkgerrors "github.com/rogermolina/residencia-backend/pkg/errors"
	"github.com/rogermolina/residencia-backend/pkg/logger"
)

// CreateBillRequest is the admin payload for issuing a bill.
type CreateBillRequest struct {
	ResidentID  uuid.UUID `json:"residentId" validate:"required"`
	Amount      string    `json:"amount" validate:"required"`
	Description string    `json:"description" validate:"required,min=3,max=500"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
}

// CreateBill issues a new bill. Admin only; the route guards the role.
func CreateBill(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bill service unavailable"))
			return
		}

		var body CreateBillRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal number"))
			return
		}

		bill, err := svc.Create(r.Context(), bills.CreateBillInput{
			ResidentID:  body.ResidentID,
			Amount:      amount,
			Description: body.Description,
			DueDate:     body.DueDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, bill)
	}
}

// ListMyBills returns the caller's bills. Admins may pass residentId to
// inspect any resident's ledger; status narrows the listing to one state.
func ListMyBills(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bill service unavailable"))
			return
		}

		residentID := middleware.UserIDFromContext(r.Context())
		if raw := r.URL.Query().Get("residentId"); raw != "" {
			if middleware.RoleFromContext(r.Context()) != enums.UserRoleAdmin {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "residentId filter requires admin role"))
				return
			}
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "residentId must be a valid uuid"))
				return
			}
			residentID = parsed
		}

		var status *enums.BillStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := enums.ParseBillStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "status must be pending, paid or failed"))
				return
			}
			status = &parsed
		}

		list, err := svc.ListByResident(r.Context(), residentID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// BillPaymentStatus exposes the payment view of one bill.
func BillPaymentStatus(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bill service unavailable"))
			return
		}

		billID, err := uuid.Parse(chi.URLParam(r, "billID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "billID must be a valid uuid"))
			return
		}

		status, err := svc.GetPaymentStatus(r.Context(), billID,
			middleware.UserIDFromContext(r.Context()), middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
