package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickfield/brickfield-backend/pkg/enums"
	"github.com/brickfield/brickfield-backend/pkg/types"
)

// Order is the customer order aggregate. Line items are an immutable
// snapshot of catalog state at order time and are never recomputed.
type Order struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string              `gorm:"column:order_number;uniqueIndex;not null"`
	UserID      *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	Guest       *types.GuestContact `gorm:"column:guest_contact;type:jsonb;serializer:json"`

	DeliveryMethod   enums.DeliveryMethod `gorm:"column:delivery_method;not null"`
	DeliveryAddress  *string              `gorm:"column:delivery_address"`
	DeliveryZoneName *string              `gorm:"column:delivery_zone_name"`
	DeliveryFeeCents int                  `gorm:"column:delivery_fee_cents;not null;default:0"`

	SubtotalCents int `gorm:"column:subtotal_cents;not null"`
	TotalCents    int `gorm:"column:total_cents;not null"`
	// RefundedCents satisfies 0 <= refunded <= total at all times.
	RefundedCents int `gorm:"column:refunded_cents;not null;default:0"`

	Status enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	// PaymentRef is the gateway payment-intent id; nil until an intent
	// exists, unique once set so a webhook matches exactly one order.
	PaymentRef *string    `gorm:"column:payment_ref;uniqueIndex"`
	PaidAt     *time.Time `gorm:"column:paid_at"`

	Items        []OrderLineItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Reservations []StockReservation `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RefundableCents is the ceiling for any new refund approval.
func (o *Order) RefundableCents() int {
	remaining := o.TotalCents - o.RefundedCents
	if remaining < 0 {
		return 0
	}
	return remaining
}
