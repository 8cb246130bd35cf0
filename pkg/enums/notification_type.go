package enums

import "fmt"

// NotificationType labels stored notifications.
type NotificationType string

const (
	NotificationLowStock      NotificationType = "low_stock"
	NotificationRefundDecided NotificationType = "refund_decided"
	// NotificationPaymentReview flags a payment confirmed after its hold
	// expired and the stock was resold. Needs a human.
	NotificationPaymentReview NotificationType = "payment_review"
	NotificationOrderPaid     NotificationType = "order_paid"
)

var validNotificationTypes = []NotificationType{
	NotificationLowStock,
	NotificationRefundDecided,
	NotificationPaymentReview,
	NotificationOrderPaid,
}

// String implements fmt.Stringer.
func (t NotificationType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known NotificationType.
func (t NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
