package models

import (
	"time"

	"github.com/google/uuid"
)

// BulkDiscountTier captures tiered percentage discounts, scoped to one
// product or global when ProductID is nil. Admin-managed; read-only to
// checkout.
type BulkDiscountTier struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID *uuid.UUID `gorm:"column:product_id;type:uuid;index"`
	MinQty    int        `gorm:"column:min_qty;not null"`
	Percent   int        `gorm:"column:percent;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
