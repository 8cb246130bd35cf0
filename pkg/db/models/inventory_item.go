package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks available/reserved counts per product. Counters are
// mutated only through the inventory ledger's conditional updates.
type InventoryItem struct {
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	AvailableQty      int       `gorm:"column:available_qty;not null;default:0"`
	ReservedQty       int       `gorm:"column:reserved_qty;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:0"`
	// HoldingPeriodMinutes overrides the configured default reservation
	// window when > 0 (click-and-collect variants hold longer).
	HoldingPeriodMinutes int       `gorm:"column:holding_period_minutes;not null;default:0"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
