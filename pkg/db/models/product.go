package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is one sellable variant in the catalog. Checkout reads it to
// reprice lines server-side; client-supplied prices are never trusted.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU            string    `gorm:"column:sku;uniqueIndex;not null"`
	Name           string    `gorm:"column:name;not null"`
	Unit           string    `gorm:"column:unit;not null;default:'each'"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Active         bool      `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
