package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Business-rule violations. Expected, typed, returned to the caller
	// for user-facing messaging; never logged as system errors.
	CodeInsufficientStock       Code = "INSUFFICIENT_STOCK"
	CodeOutOfDeliveryRange      Code = "OUT_OF_DELIVERY_RANGE"
	CodeRefundAlreadyPending    Code = "REFUND_ALREADY_PENDING"
	CodeNothingRefundable       Code = "NOTHING_REFUNDABLE"
	CodeAmountExceedsRefundable Code = "AMOUNT_EXCEEDS_REFUNDABLE"
	CodeNoPaymentReference      Code = "NO_PAYMENT_REFERENCE"
	CodeReservationExpired      Code = "RESERVATION_EXPIRED"

	// Integrity violations: an invariant the system itself should have
	// prevented. Logged at high severity, operation aborted.
	CodeIntegrity Code = "INTEGRITY_VIOLATION"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
	},
	CodeStateConflict: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeInsufficientStock: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "insufficient stock",
		DetailsAllowed: true,
	},
	CodeOutOfDeliveryRange: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "address is outside the delivery range",
		DetailsAllowed: true,
	},
	CodeRefundAlreadyPending: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "a refund request is already pending for this order",
	},
	CodeNothingRefundable: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "order has no refundable amount remaining",
	},
	CodeAmountExceedsRefundable: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "amount exceeds the refundable balance",
		DetailsAllowed: true,
	},
	CodeNoPaymentReference: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "order has no payment reference; refund must be handled manually",
	},
	CodeReservationExpired: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "stock reservation expired",
		DetailsAllowed: true,
	},
	CodeIntegrity: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "internal server error",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// IsBusinessRule reports whether the code is an expected business-rule
// violation rather than a system failure.
func IsBusinessRule(code Code) bool {
	switch code {
	case CodeInsufficientStock, CodeOutOfDeliveryRange, CodeRefundAlreadyPending,
		CodeNothingRefundable, CodeAmountExceedsRefundable, CodeNoPaymentReference,
		CodeReservationExpired:
		return true
	default:
		return false
	}
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
