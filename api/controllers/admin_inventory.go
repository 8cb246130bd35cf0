package controllers

import (
	"net/http"

	"github.com/brickfield/brickfield-backend/api/responses"
	"github.com/brickfield/brickfield-backend/api/validators"
	"github.com/brickfield/brickfield-backend/internal/inventory"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
)

// AdminGetInventory returns the live counters for one product.
func AdminGetInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// AdminSetStock overwrites a product's counters and hold window. Reserved
// stock is never touched here; only new availability is declared.
func AdminSetStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SetStock(r.Context(), productID, payload.AvailableQty, payload.LowStockThreshold, payload.HoldingPeriodMinutes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type setStockRequest struct {
	AvailableQty         int `json:"available_qty" validate:"min=0"`
	LowStockThreshold    int `json:"low_stock_threshold" validate:"min=0"`
	HoldingPeriodMinutes int `json:"holding_period_minutes" validate:"min=0"`
}
