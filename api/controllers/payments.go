package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rogermolina/residencia-backend/api/middleware"
	"github.com/rogermolina/residencia-backend/api/responses"
	"github.com/rogermolina/residencia-backend/api/validators"
	"github.com/rogermolina/residencia-backend/internal/payments"
	pkgerrors "github.com/rogermolina/residencia-backend/pkg/errors"
	"github.com/rogermolina/residencia-backend/pkg/logger"
)

// CreateIntentRequest names the bill the caller wants to pay.
type CreateIntentRequest struct {
	BillID uuid.UUID `json:"billId" validate:"required"`
}

// CreatePaymentIntent issues a gateway intent for a bill and returns the
// client secret the frontend needs to collect payment.
func CreatePaymentIntent(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var body CreateIntentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.BillID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "billId is required"))
			return
		}

		result, err := svc.IssueIntent(r.Context(), body.BillID,
			middleware.UserIDFromContext(r.Context()), middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
