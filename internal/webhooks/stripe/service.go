package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
)

type ordersService interface {
	MarkPaid(ctx context.Context, paymentRef string) (orders.PaymentOutcome, *models.Order, error)
}

type ServiceParams struct {
	Orders  ordersService
	Guard   *IdempotencyGuard
	Metrics *metrics.WebhookMetrics
	Logger  *logger.Logger
}

// Service consumes verified Stripe events. Payment confirmation is the only
// path that moves an order to paid.
type Service struct {
	orders  ordersService
	guard   *IdempotencyGuard
	metrics *metrics.WebhookMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:  params.Orders,
		guard:   params.Guard,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// HandleEvent processes one signature-verified event. A nil return
// acknowledges the delivery; an error tells the gateway to retry.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking event idempotency")
	}
	if duplicate {
		s.metrics.IncDuplicate()
		s.logg.Info(s.logg.WithField(ctx, "event_id", event.ID), "replayed webhook event skipped")
		return nil
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		if err := s.handlePaymentSucceeded(ctx, event); err != nil {
			// release the claim so the gateway's retry gets another pass
			if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
				s.logg.Error(ctx, "releasing idempotency claim failed", delErr)
			}
			s.metrics.IncFailed(string(event.Type))
			return err
		}
	case stripe.EventTypePaymentIntentPaymentFailed:
		s.handlePaymentFailed(ctx, event)
	default:
		// unhandled types are acknowledged so the gateway stops retrying
		return nil
	}

	s.metrics.IncProcessed(string(event.Type))
	return nil
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "payment_ref": intent.ID})
	outcome, order, err := s.orders.MarkPaid(ctx, intent.ID)
	if err != nil {
		return err
	}

	switch outcome {
	case orders.PaymentApplied:
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "payment applied, order paid")
	case orders.PaymentDuplicate:
		s.logg.Info(ctx, "payment already applied")
	case orders.PaymentOrderNotFound:
		s.logg.Warn(ctx, "payment confirmed for unknown payment reference")
	case orders.PaymentIgnored:
		s.logg.Warn(ctx, "payment confirmed for an order no longer payable")
	case orders.PaymentHeldForReview:
		s.logg.Warn(ctx, "payment confirmed after hold expiry; stock gone, needs review")
	}
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, event *stripe.Event) {
	// a failed attempt changes nothing: the order stays pending and its hold
	// keeps running out the clock
	ref := event.GetObjectValue("id")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "payment_ref": ref}), "payment attempt failed")
}
