package orders

import (
	"fmt"

	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
)

// fulfillmentRank orders the forward fulfillment path. Statuses outside the
// path return -1.
func fulfillmentRank(status enums.OrderStatus) int {
	switch status {
	case enums.OrderStatusPaid:
		return 0
	case enums.OrderStatusProcessing:
		return 1
	case enums.OrderStatusShipped:
		return 2
	case enums.OrderStatusDelivered, enums.OrderStatusCollected:
		return 3
	case enums.OrderStatusPending,
		enums.OrderStatusRefundRequested,
		enums.OrderStatusRefunded,
		enums.OrderStatusCancelled:
		return -1
	default:
		return -1
	}
}

// ValidateAdvance checks an admin-driven fulfillment move. Only forward moves
// along paid -> processing -> shipped -> delivered/collected are allowed, and
// the closing status must match the delivery method.
func ValidateAdvance(from, to enums.OrderStatus, method enums.DeliveryMethod) error {
	fromRank := fulfillmentRank(from)
	toRank := fulfillmentRank(to)

	if fromRank < 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %q cannot be advanced", from))
	}
	if toRank < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is not a fulfillment status", to))
	}
	if toRank <= fromRank {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order backwards from %q to %q", from, to))
	}

	switch to {
	case enums.OrderStatusDelivered:
		if method != enums.DeliveryMethodDelivery {
			return pkgerrors.New(pkgerrors.CodeValidation, "collect orders close as collected, not delivered")
		}
	case enums.OrderStatusCollected:
		if method != enums.DeliveryMethodCollect {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery orders close as delivered, not collected")
		}
	case enums.OrderStatusShipped:
		if method != enums.DeliveryMethodDelivery {
			return pkgerrors.New(pkgerrors.CodeValidation, "collect orders are never shipped")
		}
	}

	return nil
}

// ValidateCancel checks an admin cancellation. Terminal orders stay put.
func ValidateCancel(from enums.OrderStatus) error {
	switch from {
	case enums.OrderStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
	case enums.OrderStatusRefunded:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "refunded orders cannot be cancelled")
	case enums.OrderStatusPending,
		enums.OrderStatusPaid,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCollected,
		enums.OrderStatusRefundRequested:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("unknown order status %q", from))
	}
}

// ValidateRefundRequest checks the customer-triggered move into
// refund_requested.
func ValidateRefundRequest(from enums.OrderStatus) error {
	switch from {
	case enums.OrderStatusPaid,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCollected:
		return nil
	case enums.OrderStatusPending:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been paid yet")
	case enums.OrderStatusRefundRequested:
		return pkgerrors.New(pkgerrors.CodeRefundAlreadyPending, "a refund request is already open for this order")
	case enums.OrderStatusRefunded, enums.OrderStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %q cannot be refunded", from))
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("unknown order status %q", from))
	}
}
