package payments

import (
	"context"

	"github.com/google/uuid"
)

// Intent is the client-facing payment handle returned by checkout.
type Intent struct {
	Reference    string
	ClientSecret string
}

// RefundResult reports a gateway-confirmed refund.
type RefundResult struct {
	ID string
}

// Gateway is the subset of payment-provider operations the platform needs.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int, orderID uuid.UUID, orderNumber string) (*Intent, error)
	Refund(ctx context.Context, paymentRef string, amountCents int) (*RefundResult, error)
}
