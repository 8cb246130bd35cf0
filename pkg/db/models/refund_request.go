package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickfield/brickfield-backend/pkg/enums"
)

// RefundRequest links a customer refund petition to its order. At most
// one pending request may exist per order (partial unique index in the
// migration). The amount is fixed by the admin at approval time, not at
// request time.
type RefundRequest struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	RequestedBy *uuid.UUID `gorm:"column:requested_by;type:uuid"`
	Reason      string     `gorm:"column:reason;not null"`

	Status enums.RefundRequestStatus `gorm:"column:status;not null;default:'pending'"`
	// PriorOrderStatus is restored on rejection or partial approval.
	PriorOrderStatus enums.OrderStatus `gorm:"column:prior_order_status;not null"`

	AmountCents     int     `gorm:"column:amount_cents;not null;default:0"`
	AdminNotes      *string `gorm:"column:admin_notes"`
	GatewayRefundID *string `gorm:"column:gateway_refund_id"`

	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
}
