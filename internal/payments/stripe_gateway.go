package payments

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	pkgstripe "github.com/brickfield/brickfield-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

type stripeGateway struct {
	api      *stripe.Client
	currency string
}

// NewStripeGateway wraps the initialized Stripe client as a payment gateway.
// Every API call goes through the injected client so the key validated at
// startup is the one that authenticates the requests.
func NewStripeGateway(client *pkgstripe.Client, currency string) (Gateway, error) {
	if client == nil || client.API() == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	currency = strings.TrimSpace(strings.ToLower(currency))
	if currency == "" {
		currency = "usd"
	}
	return &stripeGateway{api: client.API(), currency: currency}, nil
}

func (g *stripeGateway) CreateIntent(ctx context.Context, amountCents int, orderID uuid.UUID, orderNumber string) (*Intent, error) {
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(int64(amountCents)),
		Currency: stripe.String(g.currency),
		Metadata: map[string]string{
			"order_id":     orderID.String(),
			"order_number": orderNumber,
		},
	}

	intent, err := g.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}

	return &Intent{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (g *stripeGateway) Refund(ctx context.Context, paymentRef string, amountCents int) (*RefundResult, error) {
	if strings.TrimSpace(paymentRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNoPaymentReference, "order has no payment reference")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentRef),
		Amount:        stripe.Int64(int64(amountCents)),
	}

	result, err := g.api.V1Refunds.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating refund")
	}

	return &RefundResult{ID: result.ID}, nil
}
