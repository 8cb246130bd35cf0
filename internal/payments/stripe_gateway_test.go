package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/brickfield/brickfield-backend/pkg/config"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	pkgstripe "github.com/brickfield/brickfield-backend/pkg/stripe"
)

func newTestStripeClient(t *testing.T) *pkgstripe.Client {
	t.Helper()
	client, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{
		APIKey: "sk_test_gateway",
		Secret: "whsec_gateway",
		Env:    "test",
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewStripeGatewayUsesInjectedClient(t *testing.T) {
	client := newTestStripeClient(t)

	gw, err := NewStripeGateway(client, "usd")
	require.NoError(t, err)

	sg, ok := gw.(*stripeGateway)
	require.True(t, ok)
	assert.Same(t, client.API(), sg.api)

	// The package-level key is never set, so calls that bypassed the
	// injected client would go out unauthenticated.
	assert.Empty(t, stripe.Key)
}

func TestNewStripeGatewayRejectsMissingClient(t *testing.T) {
	_, err := NewStripeGateway(nil, "usd")
	assert.Error(t, err)
}

func TestNewStripeGatewayDefaultsCurrency(t *testing.T) {
	gw, err := NewStripeGateway(newTestStripeClient(t), "  ")
	require.NoError(t, err)
	assert.Equal(t, "usd", gw.(*stripeGateway).currency)

	gw, err = NewStripeGateway(newTestStripeClient(t), "GBP")
	require.NoError(t, err)
	assert.Equal(t, "gbp", gw.(*stripeGateway).currency)
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	gw, err := NewStripeGateway(newTestStripeClient(t), "usd")
	require.NoError(t, err)

	_, err = gw.CreateIntent(context.Background(), 0, uuid.New(), "BF-1001")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestRefundRejectsBadInput(t *testing.T) {
	gw, err := NewStripeGateway(newTestStripeClient(t), "usd")
	require.NoError(t, err)

	_, err = gw.Refund(context.Background(), "  ", 500)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNoPaymentReference, appErr.Code())

	_, err = gw.Refund(context.Background(), "pi_123", 0)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
