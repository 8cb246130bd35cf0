package controllers

import (
	"net/http"

	"github.com/brickfield/brickfield-backend/api/responses"
	"github.com/brickfield/brickfield-backend/api/validators"
	"github.com/brickfield/brickfield-backend/internal/zones"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/types"
)

// QuoteDeliveryZone prices a delivery destination without touching the cart.
// Storefronts call it while the customer is still picking an address.
func QuoteDeliveryZone(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zone service unavailable"))
			return
		}

		lat, err := validators.ParseQueryFloat(r, "lat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		units, err := validators.ParseQueryInt(r, "units", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subtotal, err := validators.ParseQueryInt(r, "subtotal_cents", 0, 0, 1_000_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.QuoteDelivery(r.Context(), types.LatLng{Lat: lat, Lng: lng}, units, subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, zoneQuoteResponse{
			ZoneName:      quote.ZoneName,
			DistanceKM:    quote.DistanceKM,
			FeeCents:      quote.FeeCents,
			MinOrderCents: quote.MinOrderCents,
		})
	}
}

type zoneQuoteResponse struct {
	ZoneName      string  `json:"zone_name"`
	DistanceKM    float64 `json:"distance_km"`
	FeeCents      int     `json:"fee_cents"`
	MinOrderCents int     `json:"min_order_cents"`
}
