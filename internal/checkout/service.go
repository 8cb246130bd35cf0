package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brickfield/brickfield-backend/internal/broadcast"
	"github.com/brickfield/brickfield-backend/internal/inventory"
	"github.com/brickfield/brickfield-backend/internal/notifications"
	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/internal/payments"
	"github.com/brickfield/brickfield-backend/internal/pricing"
	"github.com/brickfield/brickfield-backend/internal/zones"
	"github.com/brickfield/brickfield-backend/pkg/db"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/maps"
	"github.com/brickfield/brickfield-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const orderNumberAttempts = 3

// Line is one requested cart line. Prices come from the catalog, never from
// the client.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// Input describes a checkout attempt.
type Input struct {
	UserID *uuid.UUID
	Guest  *types.GuestContact

	DeliveryMethod  enums.DeliveryMethod
	DeliveryAddress string
	// Destination, when set, skips geocoding of DeliveryAddress.
	Destination *types.LatLng

	Lines []Line
	// Originator tags the stock broadcast so the buyer's own client can
	// suppress its echo.
	Originator string
}

// PricedLine is one repriced line as it will be stored on the order.
type PricedLine struct {
	Product models.Product
	Quote   pricing.Quote
}

// Quote is a cart preview: repriced lines plus the delivery fee, with no
// stock taken.
type Quote struct {
	Lines         []PricedLine
	SubtotalCents int
	Delivery      *zones.DeliveryQuote
	TotalCents    int
	TotalQty      int
}

// Result is a placed order awaiting payment.
type Result struct {
	Order   *models.Order
	Items   []models.OrderLineItem
	Payment *payments.Intent
}

// Service turns carts into pending orders with stock held and a payment
// intent open.
type Service interface {
	Quote(ctx context.Context, input Input) (*Quote, error)
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type tierLoader interface {
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.BulkDiscountTier, error)
}

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*maps.GeocodeResult, error)
}

type notifier interface {
	Notify(ctx context.Context, event notifications.Event)
}

type service struct {
	tx         txRunner
	products   productLoader
	tiers      tierLoader
	inventory  inventory.Service
	ordersRepo orders.Repository
	zones      zones.Service
	geocoder   Geocoder
	gateway    payments.Gateway
	events     broadcast.Publisher
	notify     notifier
	holdFor    time.Duration
	logg       *logger.Logger
}

// NewService builds the checkout orchestrator. The geocoder may be nil when
// every caller supplies coordinates directly; the notifier may be nil.
func NewService(
	tx txRunner,
	products productLoader,
	tiers tierLoader,
	inv inventory.Service,
	ordersRepo orders.Repository,
	zoneSvc zones.Service,
	geo Geocoder,
	gateway payments.Gateway,
	events broadcast.Publisher,
	notify notifier,
	holdFor time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if tiers == nil {
		return nil, fmt.Errorf("discount tier loader required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if zoneSvc == nil {
		return nil, fmt.Errorf("zones service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if events == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	if holdFor <= 0 {
		return nil, fmt.Errorf("holding period must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		products:   products,
		tiers:      tiers,
		inventory:  inv,
		ordersRepo: ordersRepo,
		zones:      zoneSvc,
		geocoder:   geo,
		gateway:    gateway,
		events:     events,
		notify:     notify,
		holdFor:    holdFor,
		logg:       logg,
	}, nil
}

// Quote reprices the cart and resolves the delivery fee without touching
// stock.
func (s *service) Quote(ctx context.Context, input Input) (*Quote, error) {
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery method")
	}
	return s.buildQuote(ctx, input)
}

// Checkout reprices the cart, reserves every line in one transaction, and
// opens a payment intent. Any line short on stock fails the whole attempt
// and no stock is held.
func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery method")
	}
	if input.UserID == nil && (input.Guest == nil || input.Guest.IsZero()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest contact details are required")
	}

	quote, err := s.buildQuote(ctx, input)
	if err != nil {
		return nil, err
	}

	// per-product holding periods are a catalog read; resolve them before
	// opening the write transaction
	holds := make(map[uuid.UUID]time.Duration, len(quote.Lines))
	for _, line := range quote.Lines {
		holds[line.Product.ID] = s.inventory.HoldingPeriodFor(ctx, line.Product.ID, s.holdFor)
	}

	var (
		order          *models.Order
		items          []models.OrderLineItem
		reservationIDs []uuid.UUID
	)

	place := func(tx *gorm.DB) error {
		number, err := orders.GenerateOrderNumber(time.Now())
		if err != nil {
			return err
		}

		order = &models.Order{
			ID:             uuid.New(),
			OrderNumber:    number,
			UserID:         input.UserID,
			Guest:          input.Guest,
			DeliveryMethod: input.DeliveryMethod,
			SubtotalCents:  quote.SubtotalCents,
			TotalCents:     quote.TotalCents,
			Status:         enums.OrderStatusPending,
		}
		if quote.Delivery != nil {
			address := strings.TrimSpace(input.DeliveryAddress)
			if address != "" {
				order.DeliveryAddress = &address
			}
			order.DeliveryZoneName = &quote.Delivery.ZoneName
			order.DeliveryFeeCents = quote.Delivery.FeeCents
		}
		if err := s.ordersRepo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		reservationIDs = reservationIDs[:0]
		items = items[:0]
		for _, line := range quote.Lines {
			reservation, err := s.inventory.Reserve(ctx, tx, inventory.ReserveRequest{
				ProductID: line.Product.ID,
				Qty:       line.Quote.Qty,
			}, holds[line.Product.ID])
			if err != nil {
				if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeInsufficientStock {
					return appErr.WithDetails(map[string]any{"sku": line.Product.SKU})
				}
				return err
			}
			reservationIDs = append(reservationIDs, reservation.ID)

			items = append(items, models.OrderLineItem{
				ID:              uuid.New(),
				OrderID:         order.ID,
				ProductID:       line.Product.ID,
				SKU:             line.Product.SKU,
				Name:            line.Product.Name,
				Unit:            line.Product.Unit,
				Qty:             line.Quote.Qty,
				UnitPriceCents:  line.Quote.UnitPriceCents,
				DiscountPercent: line.Quote.DiscountPercent,
				TotalCents:      line.Quote.TotalCents,
			})
		}

		if err := s.ordersRepo.WithTx(tx).CreateLineItems(ctx, items); err != nil {
			return err
		}
		return s.inventory.AttachOrder(ctx, tx, reservationIDs, order.ID)
	}

	for attempt := 0; ; attempt++ {
		err = s.tx.WithTx(ctx, place)
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "") && attempt < orderNumberAttempts-1 {
			continue
		}
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "placing order")
	}

	intent, err := s.gateway.CreateIntent(ctx, order.TotalCents, order.ID, order.OrderNumber)
	if err != nil {
		s.unwind(ctx, order.ID, reservationIDs)
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening payment intent")
	}
	if err := s.ordersRepo.SetPaymentRef(ctx, order.ID, intent.Reference); err != nil {
		// the intent exists but the order does not point at it; payment can
		// never reconcile, so give the stock back
		s.logg.Error(ctx, "storing payment reference failed, unwinding order", err)
		s.unwind(ctx, order.ID, reservationIDs)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing payment reference")
	}
	ref := intent.Reference
	order.PaymentRef = &ref
	order.Items = items

	for _, line := range quote.Lines {
		s.announce(ctx, line, input.Originator)
	}

	return &Result{Order: order, Items: items, Payment: intent}, nil
}

// announce broadcasts the reservation and raises a low-stock notice when the
// line dropped the product past its threshold. Both are best effort.
func (s *service) announce(ctx context.Context, line PricedLine, originator string) {
	available := 0
	item, err := s.inventory.GetItem(ctx, line.Product.ID)
	if err == nil {
		available = item.AvailableQty
	}
	s.events.StockReserved(ctx, line.Product.ID, line.Product.SKU, line.Quote.Qty, available, originator)

	if s.notify == nil || err != nil {
		return
	}
	if item.LowStockThreshold > 0 && available <= item.LowStockThreshold {
		s.notify.Notify(ctx, notifications.Event{
			Type:    enums.NotificationLowStock,
			Title:   "Low stock",
			Message: fmt.Sprintf("%s is down to %d on hand.", line.Product.SKU, available),
		})
	}
}

func (s *service) buildQuote(ctx context.Context, input Input) (*Quote, error) {
	quote := &Quote{Lines: make([]PricedLine, 0, len(input.Lines))}
	for _, line := range input.Lines {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		if !product.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is not available", product.SKU))
		}

		tiers, err := s.tiers.ListForProduct(ctx, product.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading discount tiers")
		}

		priced := pricing.PriceLine(product.UnitPriceCents, line.Qty, tiers)
		quote.Lines = append(quote.Lines, PricedLine{Product: *product, Quote: priced})
		quote.SubtotalCents += priced.TotalCents
		quote.TotalQty += line.Qty
	}

	quote.TotalCents = quote.SubtotalCents
	if input.DeliveryMethod == enums.DeliveryMethodDelivery {
		dest, err := s.resolveDestination(ctx, input)
		if err != nil {
			return nil, err
		}
		delivery, err := s.zones.QuoteDelivery(ctx, dest, quote.TotalQty, quote.SubtotalCents)
		if err != nil {
			return nil, err
		}
		quote.Delivery = delivery
		quote.TotalCents += delivery.FeeCents
	}
	return quote, nil
}

func (s *service) resolveDestination(ctx context.Context, input Input) (types.LatLng, error) {
	if input.Destination != nil && !input.Destination.IsZero() {
		return *input.Destination, nil
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return types.LatLng{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if s.geocoder == nil {
		return types.LatLng{}, pkgerrors.New(pkgerrors.CodeDependency, "geocoding is not configured; supply coordinates")
	}
	result, err := s.geocoder.Geocode(ctx, input.DeliveryAddress)
	if err != nil {
		return types.LatLng{}, err
	}
	return result.Location, nil
}

// unwind gives back stock held by a placed order whose payment intent could
// not be opened, then removes the order.
func (s *service) unwind(ctx context.Context, orderID uuid.UUID, reservationIDs []uuid.UUID) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, id := range reservationIDs {
			if err := s.inventory.Release(ctx, tx, id); err != nil {
				return err
			}
		}
		return s.ordersRepo.WithTx(tx).Delete(ctx, orderID)
	})
	if err != nil {
		s.logg.Error(ctx, "unwinding failed checkout", err)
	}
}

func validateLines(lines []Line) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if _, dup := seen[line.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in cart; merge quantities")
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}
