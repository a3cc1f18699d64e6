package controllers

import (
	"net/http"

	"github.com/shivanand-vn/SVPharma-sub000/api/responses"
	"github.com/shivanand-vn/SVPharma-sub000/api/validators"
	internalorders "github.com/shivanand-vn/SVPharma-sub000/internal/orders"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	pkgerrors "github.com/shivanand-vn/SVPharma-sub000/pkg/errors"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/logger"
)

type transitionRequest struct {
	Status          string             `json:"status" validate:"required"`
	ModifiedItems   []orderItemRequest `json:"modified_items,omitempty" validate:"omitempty,min=1,dive"`
	Reason          string             `json:"reason,omitempty"`
	DeliverySlipURL string             `json:"delivery_slip_url,omitempty" validate:"omitempty,url"`
}

type returnItemRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Reason   string `json:"reason" validate:"required"`
}

type returnRequest struct {
	Items []returnItemRequest `json:"items" validate:"required,min=1,dive"`
}

// AdminOrderTransition moves an order to the requested status.
func AdminOrderTransition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		input := internalorders.TransitionInput{
			OrderID:         orderID,
			TargetStatus:    status,
			Reason:          body.Reason,
			DeliverySlipURL: body.DeliverySlipURL,
			ActorID:         actorID,
			ActorRole:       requesterRole(r),
		}
		if len(body.ModifiedItems) > 0 {
			input.ModifiedItems = toItemInputs(body.ModifiedItems)
		}

		order, err := svc.Transition(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderReturn records returned items against a delivered order.
func AdminOrderReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]internalorders.ReturnItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, internalorders.ReturnItemInput{
				Name:     item.Name,
				Quantity: item.Quantity,
				Reason:   item.Reason,
			})
		}

		result, err := svc.Return(r.Context(), internalorders.ReturnInput{
			OrderID:   orderID,
			Items:     items,
			ActorID:   actorID,
			ActorRole: requesterRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminOrderGet returns any order's detail for back-office review.
func AdminOrderGet(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actorID, requesterRole(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func toItemInputs(items []orderItemRequest) []internalorders.ItemInput {
	converted := make([]internalorders.ItemInput, 0, len(items))
	for _, item := range items {
		converted = append(converted, internalorders.ItemInput{
			MedicineID: item.MedicineID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}
	return converted
}
