package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brickfield/brickfield-backend/internal/broadcast"
	"github.com/brickfield/brickfield-backend/internal/inventory"
	"github.com/brickfield/brickfield-backend/internal/notifications"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActorPaymentWebhook is the audit actor for webhook-driven transitions.
const ActorPaymentWebhook = "payment-webhook"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Notify(ctx context.Context, event notifications.Event)
}

// PaymentOutcome describes what MarkPaid did, so the webhook layer can log
// and count each case without re-deriving it.
type PaymentOutcome string

const (
	PaymentApplied       PaymentOutcome = "applied"
	PaymentDuplicate     PaymentOutcome = "duplicate"
	PaymentIgnored       PaymentOutcome = "ignored"
	PaymentOrderNotFound PaymentOutcome = "order_not_found"
	// PaymentHeldForReview: the hold expired and the stock is gone; the order
	// stays pending for manual resolution.
	PaymentHeldForReview PaymentOutcome = "held_for_review"
)

// Service owns the order lifecycle.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	List(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error)
	MarkPaid(ctx context.Context, paymentRef string) (PaymentOutcome, *models.Order, error)
	Advance(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor, note string) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor, note string) (*models.Order, error)
	ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	inventory inventory.Service
	publisher broadcast.Publisher
	notify    notifier
	logg      *logger.Logger
}

// NewService builds the orders service. The publisher and notifier may be
// nil; stock events and notices are then skipped.
func NewService(tx txRunner, repo Repository, inv inventory.Service, publisher broadcast.Publisher, notify notifier, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, inventory: inv, publisher: publisher, notify: notify, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	entries, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order history")
	}
	return entries, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return s.repo.ListByUser(ctx, userID, params)
}

func (s *service) List(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error) {
	return s.repo.List(ctx, status, params)
}

var errHoldLost = errors.New("hold lost")

// MarkPaid applies a confirmed payment. Only the webhook path calls this:
// pending -> paid plus committing every attached hold happen in one
// transaction. Replays and payments for terminal orders are absorbed.
func (s *service) MarkPaid(ctx context.Context, paymentRef string) (PaymentOutcome, *models.Order, error) {
	order, err := s.repo.FindByPaymentRef(ctx, paymentRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PaymentOrderNotFound, nil, nil
		}
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up order by payment ref")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	switch order.Status {
	case enums.OrderStatusPending:
		// fall through to the transactional apply
	case enums.OrderStatusPaid,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCollected,
		enums.OrderStatusRefundRequested,
		enums.OrderStatusRefunded:
		return PaymentDuplicate, order, nil
	case enums.OrderStatusCancelled:
		s.logg.Warn(ctx, "payment confirmation for cancelled order ignored")
		return PaymentIgnored, order, nil
	default:
		return PaymentIgnored, order, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		flipped, err := repo.MarkPaid(ctx, order.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !flipped {
			// a concurrent delivery won; surface as duplicate below
			return nil
		}

		for _, reservation := range order.Reservations {
			if err := s.settleHold(ctx, tx, order.ID, reservation); err != nil {
				return err
			}
		}

		return repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: enums.OrderStatusPending,
			ToStatus:   enums.OrderStatusPaid,
			Note:       "payment confirmed by gateway",
			Actor:      ActorPaymentWebhook,
		})
	})
	if err != nil {
		if errors.Is(err, errHoldLost) {
			return s.holdForReview(ctx, order)
		}
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying payment")
	}

	updated, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return PaymentApplied, order, nil
	}
	if updated.Status != enums.OrderStatusPaid && order.Status == enums.OrderStatusPending {
		return PaymentDuplicate, updated, nil
	}
	if s.notify != nil && updated.UserID != nil {
		s.notify.Notify(ctx, notifications.Event{
			Type:    enums.NotificationOrderPaid,
			UserID:  updated.UserID,
			Title:   "Payment received",
			Message: fmt.Sprintf("Order %s is paid and queued for fulfilment.", updated.OrderNumber),
		})
	}
	return PaymentApplied, updated, nil
}

// settleHold commits a live hold. An already-expired hold is re-taken from
// available stock when possible; otherwise the whole apply is aborted.
func (s *service) settleHold(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reservation models.StockReservation) error {
	err := s.inventory.Commit(ctx, tx, reservation.ID)
	if err == nil {
		return nil
	}

	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeReservationExpired {
		return err
	}

	// the sweep released this hold before the payment arrived; take the
	// stock again if it is still there
	replacement, err := s.inventory.Reserve(ctx, tx, inventory.ReserveRequest{
		ProductID: reservation.ProductID,
		Qty:       reservation.Qty,
	}, time.Minute)
	if err != nil {
		replacementErr := pkgerrors.As(err)
		if replacementErr != nil && replacementErr.Code() == pkgerrors.CodeInsufficientStock {
			return errHoldLost
		}
		return err
	}
	if err := s.inventory.AttachOrder(ctx, tx, []uuid.UUID{replacement.ID}, orderID); err != nil {
		return err
	}
	return s.inventory.Commit(ctx, tx, replacement.ID)
}

// holdForReview records that money arrived for stock that is gone. The order
// stays pending and ops resolve it manually (refund or restock).
func (s *service) holdForReview(ctx context.Context, order *models.Order) (PaymentOutcome, *models.Order, error) {
	err := s.repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: enums.OrderStatusPending,
		ToStatus:   enums.OrderStatusPending,
		Note:       "payment received after hold expired; stock no longer available",
		Actor:      ActorPaymentWebhook,
	})
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording held payment")
	}
	s.logg.Warn(ctx, "payment received after hold expired; order held for review")
	if s.notify != nil {
		s.notify.Notify(ctx, notifications.Event{
			Type:    enums.NotificationPaymentReview,
			Title:   "Payment needs review",
			Message: fmt.Sprintf("Order %s was paid after its hold expired and the stock is gone.", order.OrderNumber),
		})
	}
	return PaymentHeldForReview, order, nil
}

// Advance moves an order forward along the fulfillment path.
func (s *service) Advance(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor, note string) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := ValidateAdvance(order.Status, to, order.DeliveryMethod); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		flipped, err := repo.TransitionStatus(ctx, orderID, order.Status, to)
		if err != nil {
			return err
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed while advancing")
		}
		return repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: order.Status,
			ToStatus:   to,
			Note:       note,
			Actor:      actor,
		})
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "advancing order")
	}

	return s.Get(ctx, orderID)
}

// Cancel sets the order to cancelled and returns any still-held stock.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor, note string) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := ValidateCancel(order.Status); err != nil {
		return nil, err
	}

	released := make([]models.StockReservation, 0, len(order.Reservations))
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		flipped, err := repo.TransitionStatus(ctx, orderID, order.Status, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed while cancelling")
		}

		for _, reservation := range order.Reservations {
			if reservation.Status != enums.ReservationStatusReserved {
				continue
			}
			if err := s.inventory.Release(ctx, tx, reservation.ID); err != nil {
				return err
			}
			released = append(released, reservation)
		}

		return repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: order.Status,
			ToStatus:   enums.OrderStatusCancelled,
			Note:       note,
			Actor:      actor,
		})
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
	}

	s.broadcastReleases(ctx, order, released)

	return s.Get(ctx, orderID)
}

// ExpireStalePending cancels pending orders older than the TTL whose holds
// have all lapsed. Run from the cron worker.
func (s *service) ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := s.repo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing pending orders")
	}

	expired := 0
	for _, order := range stale {
		if _, err := s.Cancel(ctx, order.ID, "system", "payment never completed"); err != nil {
			s.logg.Error(ctx, "expiring pending order failed", err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *service) broadcastReleases(ctx context.Context, order *models.Order, released []models.StockReservation) {
	if s.publisher == nil || len(released) == 0 {
		return
	}

	skuByProduct := make(map[uuid.UUID]string, len(order.Items))
	for _, item := range order.Items {
		skuByProduct[item.ProductID] = item.SKU
	}

	for _, reservation := range released {
		availableAfter := 0
		if item, err := s.inventory.GetItem(ctx, reservation.ProductID); err == nil {
			availableAfter = item.AvailableQty
		}
		s.publisher.StockReleased(ctx, reservation.ProductID, skuByProduct[reservation.ProductID], reservation.Qty, availableAfter)
	}
}
