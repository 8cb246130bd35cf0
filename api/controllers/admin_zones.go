package controllers

import (
	"net/http"
	"strings"

	"github.com/brickfield/brickfield-backend/api/responses"
	"github.com/brickfield/brickfield-backend/api/validators"
	"github.com/brickfield/brickfield-backend/internal/zones"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
)

// AdminListZones returns every delivery zone, active or not.
func AdminListZones(repo zones.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zone repository unavailable"))
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

// AdminCreateZone adds a delivery band around the warehouse.
func AdminCreateZone(repo zones.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zone repository unavailable"))
			return
		}

		var payload zoneRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone := payload.toModel()
		if err := repo.Create(r.Context(), &zone); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, zone)
	}
}

// AdminUpdateZone rewrites a zone's radius, fees, and active flag.
func AdminUpdateZone(repo zones.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zone repository unavailable"))
			return
		}

		zoneID, err := uuidParam(r, "zoneID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload zoneRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone := payload.toModel()
		zone.ID = zoneID
		if err := repo.Update(r.Context(), &zone); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zone)
	}
}

// AdminDeleteZone removes a zone. Orders keep their zone snapshot.
func AdminDeleteZone(repo zones.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zone repository unavailable"))
			return
		}

		zoneID, err := uuidParam(r, "zoneID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.Delete(r.Context(), zoneID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type zoneRequest struct {
	Name            string  `json:"name" validate:"required"`
	RadiusKM        float64 `json:"radius_km" validate:"required,gt=0"`
	BaseFeeCents    int     `json:"base_fee_cents" validate:"min=0"`
	PerUnitFeeCents int     `json:"per_unit_fee_cents" validate:"min=0"`
	MinOrderCents   int     `json:"min_order_cents" validate:"min=0"`
	Active          *bool   `json:"active,omitempty"`
}

func (r zoneRequest) toModel() models.DeliveryZone {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return models.DeliveryZone{
		Name:            strings.TrimSpace(r.Name),
		RadiusKM:        r.RadiusKM,
		BaseFeeCents:    r.BaseFeeCents,
		PerUnitFeeCents: r.PerUnitFeeCents,
		MinOrderCents:   r.MinOrderCents,
		Active:          active,
	}
}
