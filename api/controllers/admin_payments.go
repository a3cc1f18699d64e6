package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shivanand-vn/SVPharma-sub000/api/responses"
	"github.com/shivanand-vn/SVPharma-sub000/api/validators"
	internalpayments "github.com/shivanand-vn/SVPharma-sub000/internal/payments"
	pkgerrors "github.com/shivanand-vn/SVPharma-sub000/pkg/errors"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/logger"
)

type offlinePaymentRequest struct {
	CustomerID uuid.UUID       `json:"customer_id" validate:"required,uuid4"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
}

type rejectPaymentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AdminPaymentOffline records a cash payment collected outside the app.
func AdminPaymentOffline(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body offlinePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.SubmitOffline(r.Context(), internalpayments.OfflineInput{
			CustomerID: body.CustomerID,
			Amount:     body.Amount,
			ActorID:    actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// AdminPaymentApprove settles a pending payment against the customer's due.
func AdminPaymentApprove(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Approve(r.Context(), paymentID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// AdminPaymentReject marks a pending payment rejected with an auditable reason.
func AdminPaymentReject(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rejectPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Reject(r.Context(), paymentID, body.Reason, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}
