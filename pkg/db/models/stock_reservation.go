package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickfield/brickfield-backend/pkg/enums"
)

// StockReservation is the token for a temporary, uncommitted hold against
// available stock. Reserved holds past ExpiresAt are eligible for release
// by the background sweep.
type StockReservation struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	Qty       int                     `gorm:"column:qty;not null"`
	Status    enums.ReservationStatus `gorm:"column:status;not null;default:'reserved'"`
	ExpiresAt time.Time               `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
