package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/brickfield/brickfield-backend/api/responses"
	"github.com/brickfield/brickfield-backend/api/validators"
	"github.com/brickfield/brickfield-backend/internal/pricing"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
)

// AdminListDiscountTiers returns every bulk discount tier.
func AdminListDiscountTiers(repo pricing.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing repository unavailable"))
			return
		}

		items, err := repo.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// AdminCreateDiscountTier adds a tier, product-scoped or global.
func AdminCreateDiscountTier(repo pricing.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing repository unavailable"))
			return
		}

		var payload discountTierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tier := models.BulkDiscountTier{
			ProductID: payload.ProductID,
			MinQty:    payload.MinQty,
			Percent:   payload.Percent,
		}
		if err := repo.Create(r.Context(), &tier); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tier)
	}
}

// AdminUpdateDiscountTier rewrites a tier's quantity floor and percentage.
func AdminUpdateDiscountTier(repo pricing.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing repository unavailable"))
			return
		}

		tierID, err := uuidParam(r, "tierID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload discountTierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tier := models.BulkDiscountTier{
			ID:        tierID,
			ProductID: payload.ProductID,
			MinQty:    payload.MinQty,
			Percent:   payload.Percent,
		}
		if err := repo.Update(r.Context(), &tier); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tier)
	}
}

// AdminDeleteDiscountTier removes a tier. Existing orders keep their
// snapshotted prices.
func AdminDeleteDiscountTier(repo pricing.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing repository unavailable"))
			return
		}

		tierID, err := uuidParam(r, "tierID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.Delete(r.Context(), tierID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type discountTierRequest struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	MinQty    int        `json:"min_qty" validate:"required,min=2"`
	Percent   int        `json:"percent" validate:"required,min=1,max=90"`
}
