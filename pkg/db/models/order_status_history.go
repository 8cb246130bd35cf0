package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickfield/brickfield-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit log of status changes.
// Rows are written in the same transaction as the status change and are
// never updated or deleted.
type OrderStatusHistory struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;not null"`
	Note       string            `gorm:"column:note;not null;default:''"`
	Actor      string            `gorm:"column:actor;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
