package zones

import (
	"context"
	"fmt"
	"sort"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/types"
)

// DeliveryQuote carries the resolved zone and computed fee for a destination.
type DeliveryQuote struct {
	ZoneName      string
	DistanceKM    float64
	FeeCents      int
	MinOrderCents int
}

// Service resolves delivery destinations against the configured zones.
type Service interface {
	QuoteDelivery(ctx context.Context, dest types.LatLng, totalQty, subtotalCents int) (*DeliveryQuote, error)
}

type service struct {
	repo      Repository
	warehouse types.LatLng
}

// NewService builds the zone resolution service.
func NewService(repo Repository, warehouse types.LatLng) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("zone repository required")
	}
	if warehouse.IsZero() {
		return nil, fmt.Errorf("warehouse location required")
	}
	return &service{repo: repo, warehouse: warehouse}, nil
}

// QuoteDelivery picks the tightest active zone containing the destination
// and prices the trip. Destinations beyond every zone radius are rejected,
// as are orders below the zone's minimum.
func (s *service) QuoteDelivery(ctx context.Context, dest types.LatLng, totalQty, subtotalCents int) (*DeliveryQuote, error) {
	if dest.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery destination is required")
	}

	zones, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading delivery zones")
	}

	distance := DistanceKM(s.warehouse, dest)
	zone := matchZone(zones, distance)
	if zone == nil {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfDeliveryRange, fmt.Sprintf("destination is %.1f km away, beyond all delivery zones", distance))
	}

	if subtotalCents < zone.MinOrderCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order subtotal below the %s zone minimum", zone.Name)).
			WithDetails(map[string]any{"min_order_cents": zone.MinOrderCents})
	}

	return &DeliveryQuote{
		ZoneName:      zone.Name,
		DistanceKM:    distance,
		FeeCents:      zone.BaseFeeCents + zone.PerUnitFeeCents*totalQty,
		MinOrderCents: zone.MinOrderCents,
	}, nil
}

// matchZone returns the zone with the smallest radius covering the distance.
func matchZone(zones []models.DeliveryZone, distanceKM float64) *models.DeliveryZone {
	sorted := make([]models.DeliveryZone, len(zones))
	copy(sorted, zones)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RadiusKM < sorted[j].RadiusKM })

	for i := range sorted {
		if distanceKM <= sorted[i].RadiusKM {
			return &sorted[i]
		}
	}
	return nil
}
