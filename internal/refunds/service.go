package refunds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brickfield/brickfield-backend/internal/notifications"
	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/internal/payments"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Notify(ctx context.Context, event notifications.Event)
}

// Service drives the refund request lifecycle. Money only moves on approval,
// and only after the gateway confirms.
type Service interface {
	Request(ctx context.Context, orderID uuid.UUID, requestedBy *uuid.UUID, reason string) (*models.RefundRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID, amountCents int, notes, actor string) (*models.RefundRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID, notes, actor string) (*models.RefundRequest, error)
	Get(ctx context.Context, requestID uuid.UUID) (*models.RefundRequest, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error)
	ListPending(ctx context.Context) ([]models.RefundRequest, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	ordersRepo orders.Repository
	gateway    payments.Gateway
	notify     notifier
	logg       *logger.Logger
}

// NewService builds the refund workflow service. The notifier may be nil.
func NewService(tx txRunner, repo Repository, ordersRepo orders.Repository, gateway payments.Gateway, notify notifier, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, ordersRepo: ordersRepo, gateway: gateway, notify: notify, logg: logg}, nil
}

// Request opens a refund request and parks the order in refund_requested,
// remembering where it came from so rejection can put it back.
func (s *service) Request(ctx context.Context, orderID uuid.UUID, requestedBy *uuid.UUID, reason string) (*models.RefundRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason is required")
	}

	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	if order.RefundedCents >= order.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeNothingRefundable, "order is already fully refunded")
	}
	if err := orders.ValidateRefundRequest(order.Status); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindOpenByOrder(ctx, orderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeRefundAlreadyPending, "a refund request is already open for this order")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking open refund requests")
	}

	request := &models.RefundRequest{
		ID:               uuid.New(),
		OrderID:          orderID,
		RequestedBy:      requestedBy,
		Reason:           reason,
		Status:           enums.RefundRequestStatusPending,
		PriorOrderStatus: order.Status,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)

		flipped, err := ordersRepo.TransitionStatus(ctx, orderID, order.Status, enums.OrderStatusRefundRequested)
		if err != nil {
			return err
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed while opening refund request")
		}

		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return err
		}

		return ordersRepo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: order.Status,
			ToStatus:   enums.OrderStatusRefundRequested,
			Note:       reason,
			Actor:      actorLabel(requestedBy),
		})
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "opening refund request")
	}

	return request, nil
}

// Approve moves money. The request is claimed first so racing approvals
// cannot both reach the gateway; the refundable ceiling is validated against
// the order's current refunded total at approval time.
func (s *service) Approve(ctx context.Context, requestID uuid.UUID, amountCents int, notes, actor string) (*models.RefundRequest, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.RefundRequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("refund request is %s, not pending", request.Status))
	}

	order, err := s.ordersRepo.FindByID(ctx, request.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	refundable := order.TotalCents - order.RefundedCents
	if amountCents <= 0 || amountCents > refundable {
		return nil, pkgerrors.New(pkgerrors.CodeAmountExceedsRefundable, fmt.Sprintf("refundable amount is %d cents", refundable)).
			WithDetails(map[string]any{"refundable_cents": refundable})
	}
	if order.PaymentRef == nil || strings.TrimSpace(*order.PaymentRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNoPaymentReference, "order has no payment reference; refund manually via the gateway")
	}

	claimed, err := s.repo.Claim(ctx, requestID, enums.RefundRequestStatusPending, enums.RefundRequestStatusProcessing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claiming refund request")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund request is already being processed")
	}

	result, err := s.gateway.Refund(ctx, *order.PaymentRef, amountCents)
	if err != nil {
		// money did not move; put the request back for another attempt
		if _, revertErr := s.repo.Claim(ctx, requestID, enums.RefundRequestStatusProcessing, enums.RefundRequestStatusPending); revertErr != nil {
			s.logg.Error(ctx, "reverting refund claim failed", revertErr)
		}
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway refund failed")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)

		bumped, err := ordersRepo.AddRefundedCents(ctx, order.ID, amountCents)
		if err != nil {
			return err
		}
		if !bumped {
			return pkgerrors.New(pkgerrors.CodeIntegrity, "refunded total would exceed order total")
		}

		request.Status = enums.RefundRequestStatusApproved
		request.AmountCents = amountCents
		request.AdminNotes = optionalString(notes)
		request.GatewayRefundID = &result.ID
		request.ResolvedAt = &now
		if err := s.repo.WithTx(tx).Resolve(ctx, request); err != nil {
			return err
		}

		newRefunded := order.RefundedCents + amountCents
		target := request.PriorOrderStatus
		note := fmt.Sprintf("partial refund of %d cents approved", amountCents)
		if newRefunded >= order.TotalCents {
			target = enums.OrderStatusRefunded
			note = "order fully refunded"
		}

		flipped, err := ordersRepo.TransitionStatus(ctx, order.ID, enums.OrderStatusRefundRequested, target)
		if err != nil {
			return err
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed while approving refund")
		}

		return ordersRepo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: enums.OrderStatusRefundRequested,
			ToStatus:   target,
			Note:       note,
			Actor:      actor,
		})
	})
	if err != nil {
		// the gateway refund went through but the local write failed; keep
		// the request claimed and surface loudly for manual reconciliation
		s.logg.Error(ctx, "refund approved at gateway but local finalize failed", err)
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalizing refund")
	}

	s.notifyDecision(ctx, request, fmt.Sprintf("Your refund of %d cents was approved.", amountCents))
	return request, nil
}

// Reject closes the request and puts the order back where it was. Notes are
// required: the customer sees them.
func (s *service) Reject(ctx context.Context, requestID uuid.UUID, notes, actor string) (*models.RefundRequest, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection notes are required")
	}

	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.RefundRequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("refund request is %s, not pending", request.Status))
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := s.repo.WithTx(tx).Claim(ctx, requestID, enums.RefundRequestStatusPending, enums.RefundRequestStatusRejected)
		if err != nil {
			return err
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request is already being processed")
		}

		request.Status = enums.RefundRequestStatusRejected
		request.AdminNotes = optionalString(notes)
		request.ResolvedAt = &now
		if err := s.repo.WithTx(tx).Resolve(ctx, request); err != nil {
			return err
		}

		ordersRepo := s.ordersRepo.WithTx(tx)
		flipped, err := ordersRepo.TransitionStatus(ctx, request.OrderID, enums.OrderStatusRefundRequested, request.PriorOrderStatus)
		if err != nil {
			return err
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed while rejecting refund")
		}

		return ordersRepo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    request.OrderID,
			FromStatus: enums.OrderStatusRefundRequested,
			ToStatus:   request.PriorOrderStatus,
			Note:       notes,
			Actor:      actor,
		})
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rejecting refund request")
	}

	s.notifyDecision(ctx, request, "Your refund request was declined: "+notes)
	return request, nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID) (*models.RefundRequest, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading refund request")
	}
	return request, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error) {
	requests, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing refund requests")
	}
	return requests, nil
}

func (s *service) ListPending(ctx context.Context) ([]models.RefundRequest, error) {
	requests, err := s.repo.ListByStatus(ctx, enums.RefundRequestStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing refund requests")
	}
	return requests, nil
}

func (s *service) notifyDecision(ctx context.Context, request *models.RefundRequest, message string) {
	if s.notify == nil || request.RequestedBy == nil {
		return
	}
	s.notify.Notify(ctx, notifications.Event{
		Type:    enums.NotificationRefundDecided,
		UserID:  request.RequestedBy,
		Title:   "Refund decision",
		Message: message,
	})
}

func actorLabel(requestedBy *uuid.UUID) string {
	if requestedBy == nil {
		return "customer"
	}
	return "customer:" + requestedBy.String()
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
