package enums

import "fmt"

// RefundRequestStatus tracks the review lifecycle of a refund request.
type RefundRequestStatus string

const (
	RefundRequestStatusPending RefundRequestStatus = "pending"
	// RefundRequestStatusProcessing marks a claimed request while the
	// gateway refund is in flight. Reverted to pending on gateway failure.
	RefundRequestStatusProcessing RefundRequestStatus = "processing"
	RefundRequestStatusApproved   RefundRequestStatus = "approved"
	RefundRequestStatusRejected   RefundRequestStatus = "rejected"
)

var validRefundRequestStatuses = []RefundRequestStatus{
	RefundRequestStatusPending,
	RefundRequestStatusProcessing,
	RefundRequestStatusApproved,
	RefundRequestStatusRejected,
}

// String implements fmt.Stringer.
func (s RefundRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RefundRequestStatus.
func (s RefundRequestStatus) IsValid() bool {
	for _, candidate := range validRefundRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRefundRequestStatus converts raw input into a RefundRequestStatus.
func ParseRefundRequestStatus(value string) (RefundRequestStatus, error) {
	for _, candidate := range validRefundRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund request status %q", value)
}
