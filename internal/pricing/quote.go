package pricing

import (
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// Quote is the priced outcome for a single line.
type Quote struct {
	UnitPriceCents  int
	Qty             int
	DiscountPercent int
	GrossCents      int
	TotalCents      int
}

// SavingsCents reports how much the discount removed from the gross amount.
func (q Quote) SavingsCents() int {
	return q.GrossCents - q.TotalCents
}

// SelectTier picks the discount tier that applies to the quantity. The tier
// with the highest satisfied min_qty wins; on equal min_qty the higher
// percent wins. A nil return means no discount.
func SelectTier(tiers []models.BulkDiscountTier, qty int) *models.BulkDiscountTier {
	var best *models.BulkDiscountTier
	for i := range tiers {
		tier := &tiers[i]
		if qty < tier.MinQty {
			continue
		}
		if best == nil {
			best = tier
			continue
		}
		if tier.MinQty > best.MinQty {
			best = tier
			continue
		}
		if tier.MinQty == best.MinQty && tier.Percent > best.Percent {
			best = tier
		}
	}
	return best
}

// PriceLine computes the discounted line total in cents. The discount is
// applied to the line gross, rounded half-up to a whole cent.
func PriceLine(unitPriceCents, qty int, tiers []models.BulkDiscountTier) Quote {
	gross := unitPriceCents * qty
	quote := Quote{
		UnitPriceCents: unitPriceCents,
		Qty:            qty,
		GrossCents:     gross,
		TotalCents:     gross,
	}

	tier := SelectTier(tiers, qty)
	if tier == nil || tier.Percent <= 0 {
		return quote
	}

	factor := decimal.NewFromInt(100 - int64(tier.Percent)).Div(decimal.NewFromInt(100))
	total := decimal.NewFromInt(int64(gross)).Mul(factor).Round(0)

	quote.DiscountPercent = tier.Percent
	quote.TotalCents = int(total.IntPart())
	return quote
}
