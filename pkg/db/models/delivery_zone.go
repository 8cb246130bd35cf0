package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryZone is a circular delivery band around the warehouse. Zones
// are matched by ascending radius; overlap prevention is a business
// process, not a system constraint.
type DeliveryZone struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	RadiusKM        float64   `gorm:"column:radius_km;not null"`
	BaseFeeCents    int       `gorm:"column:base_fee_cents;not null"`
	PerUnitFeeCents int       `gorm:"column:per_unit_fee_cents;not null;default:0"`
	MinOrderCents   int       `gorm:"column:min_order_cents;not null;default:0"`
	Active          bool      `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
