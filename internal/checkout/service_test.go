package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brickfield/brickfield-backend/internal/inventory"
	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/internal/payments"
	"github.com/brickfield/brickfield-backend/internal/zones"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/brickfield/brickfield-backend/pkg/maps"
	"github.com/brickfield/brickfield-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubProducts struct {
	byID map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

type stubTiers struct {
	tiers []models.BulkDiscountTier
}

func (s *stubTiers) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.BulkDiscountTier, error) {
	return s.tiers, nil
}

type stubZones struct {
	quote *zones.DeliveryQuote
	err   error
	calls int
}

func (s *stubZones) QuoteDelivery(ctx context.Context, dest types.LatLng, totalQty, subtotalCents int) (*zones.DeliveryQuote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

type stubGeocoder struct {
	calls int
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (*maps.GeocodeResult, error) {
	s.calls++
	return &maps.GeocodeResult{FormattedAddress: address, Location: types.LatLng{Lat: 0.1, Lng: 0.1}}, nil
}

type stubCheckoutGateway struct {
	intents int
	failErr error
}

func (g *stubCheckoutGateway) CreateIntent(ctx context.Context, amountCents int, orderID uuid.UUID, orderNumber string) (*payments.Intent, error) {
	g.intents++
	if g.failErr != nil {
		return nil, g.failErr
	}
	return &payments.Intent{Reference: "pi_" + orderNumber, ClientSecret: "secret"}, nil
}

func (g *stubCheckoutGateway) Refund(ctx context.Context, paymentRef string, amountCents int) (*payments.RefundResult, error) {
	return nil, errors.New("not used")
}

type recordedEvent struct {
	kind       string
	productID  uuid.UUID
	qty        int
	originator string
}

type stubEvents struct {
	events []recordedEvent
}

func (s *stubEvents) StockReserved(ctx context.Context, productID uuid.UUID, sku string, qty, availableAfter int, originator string) {
	s.events = append(s.events, recordedEvent{kind: "reserved", productID: productID, qty: qty, originator: originator})
}

func (s *stubEvents) StockReleased(ctx context.Context, productID uuid.UUID, sku string, qty, availableAfter int) {
	s.events = append(s.events, recordedEvent{kind: "released", productID: productID, qty: qty})
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
  product_id TEXT PRIMARY KEY,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 0,
  holding_period_minutes INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS stock_reservations (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  order_id TEXT,
  qty INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'reserved',
  expires_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT,
  guest_contact TEXT,
  delivery_method TEXT NOT NULL,
  delivery_address TEXT,
  delivery_zone_name TEXT,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  subtotal_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  refunded_cents INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_ref TEXT UNIQUE,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  unit TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  discount_percent INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type checkoutFixture struct {
	db       *gorm.DB
	svc      Service
	products *stubProducts
	zones    *stubZones
	geocoder *stubGeocoder
	gateway  *stubCheckoutGateway
	events   *stubEvents
	brick    *models.Product
	sand     *models.Product
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := setupCheckoutTestDB(t)

	brick := &models.Product{ID: uuid.New(), SKU: "BRK-RED", Name: "Red clay brick", Unit: "each", UnitPriceCents: 100, Active: true}
	sand := &models.Product{ID: uuid.New(), SKU: "SND-25KG", Name: "Sharp sand 25kg", Unit: "bag", UnitPriceCents: 450, Active: true}
	for _, p := range []*models.Product{brick, sand} {
		require.NoError(t, db.Create(&models.InventoryItem{ProductID: p.ID, AvailableQty: 100}).Error)
	}

	products := &stubProducts{byID: map[uuid.UUID]*models.Product{brick.ID: brick, sand.ID: sand}}
	tiers := &stubTiers{tiers: []models.BulkDiscountTier{{MinQty: 100, Percent: 5}}}
	zonesSvc := &stubZones{quote: &zones.DeliveryQuote{ZoneName: "local", FeeCents: 1500}}
	geo := &stubGeocoder{}
	gateway := &stubCheckoutGateway{}
	events := &stubEvents{}
	logg := logger.New(logger.Options{ServiceName: "checkout-test", Level: zerolog.ErrorLevel})

	invRepo, err := inventory.NewRepository(db)
	require.NoError(t, err)
	invSvc, err := inventory.NewService(invRepo)
	require.NoError(t, err)

	svc, err := NewService(gormTxRunner{db: db}, products, tiers, invSvc, orders.NewRepository(db), zonesSvc, geo, gateway, events, nil, 30*time.Minute, logg)
	require.NoError(t, err)

	return &checkoutFixture{
		db:       db,
		svc:      svc,
		products: products,
		zones:    zonesSvc,
		geocoder: geo,
		gateway:  gateway,
		events:   events,
		brick:    brick,
		sand:     sand,
	}
}

func (f *checkoutFixture) available(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, f.db.First(&item, "product_id = ?", productID).Error)
	return item.AvailableQty
}

func collectInput(f *checkoutFixture, lines ...Line) Input {
	return Input{
		Guest:          &types.GuestContact{Name: "Pat Mason", Email: "pat@example.com"},
		DeliveryMethod: enums.DeliveryMethodCollect,
		Lines:          lines,
		Originator:     "client-abc",
	}
}

func TestCheckoutCollectHappyPath(t *testing.T) {
	f := newCheckoutFixture(t)

	result, err := f.svc.Checkout(context.Background(), collectInput(f,
		Line{ProductID: f.brick.ID, Qty: 100},
		Line{ProductID: f.sand.ID, Qty: 2},
	))
	require.NoError(t, err)

	// 100 bricks at 100c with 5% off = 9500; 2 bags at 450c, no tier reached
	assert.Equal(t, 9500+900, result.Order.SubtotalCents)
	assert.Equal(t, result.Order.SubtotalCents, result.Order.TotalCents)
	assert.Equal(t, enums.OrderStatusPending, result.Order.Status)
	assert.Equal(t, 0, result.Order.DeliveryFeeCents)
	require.NotNil(t, result.Order.PaymentRef)
	assert.Equal(t, result.Payment.Reference, *result.Order.PaymentRef)

	require.Len(t, result.Items, 2)
	assert.Equal(t, 5, result.Items[0].DiscountPercent)
	assert.Equal(t, 9500, result.Items[0].TotalCents)

	assert.Equal(t, 0, f.available(t, f.brick.ID))
	assert.Equal(t, 98, f.available(t, f.sand.ID))

	var holds []models.StockReservation
	require.NoError(t, f.db.Find(&holds, "order_id = ?", result.Order.ID).Error)
	assert.Len(t, holds, 2)

	require.Len(t, f.events.events, 2)
	assert.Equal(t, "reserved", f.events.events[0].kind)
	assert.Equal(t, "client-abc", f.events.events[0].originator)
}

func TestCheckoutIsAllOrNothing(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Checkout(context.Background(), collectInput(f,
		Line{ProductID: f.brick.ID, Qty: 10},
		Line{ProductID: f.sand.ID, Qty: 500},
	))
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, appErr.Code())

	// the brick hold from the first line rolled back with the order
	assert.Equal(t, 100, f.available(t, f.brick.ID))
	assert.Equal(t, 100, f.available(t, f.sand.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.events.events)
	assert.Zero(t, f.gateway.intents)
}

func TestCheckoutDeliveryGeocodesAndAddsFee(t *testing.T) {
	f := newCheckoutFixture(t)

	input := collectInput(f, Line{ProductID: f.sand.ID, Qty: 10})
	input.DeliveryMethod = enums.DeliveryMethodDelivery
	input.DeliveryAddress = "1 Kiln Lane"

	result, err := f.svc.Checkout(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, f.geocoder.calls)
	assert.Equal(t, 1, f.zones.calls)
	assert.Equal(t, 4500, result.Order.SubtotalCents)
	assert.Equal(t, 4500+1500, result.Order.TotalCents)
	assert.Equal(t, 1500, result.Order.DeliveryFeeCents)
	require.NotNil(t, result.Order.DeliveryZoneName)
	assert.Equal(t, "local", *result.Order.DeliveryZoneName)
}

func TestCheckoutOutOfRangeFailsBeforeReserving(t *testing.T) {
	f := newCheckoutFixture(t)
	f.zones.err = pkgerrors.New(pkgerrors.CodeOutOfDeliveryRange, "too far")

	input := collectInput(f, Line{ProductID: f.sand.ID, Qty: 10})
	input.DeliveryMethod = enums.DeliveryMethodDelivery
	input.Destination = &types.LatLng{Lat: 5, Lng: 5}

	_, err := f.svc.Checkout(context.Background(), input)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeOutOfDeliveryRange, appErr.Code())
	assert.Equal(t, 100, f.available(t, f.sand.ID))
	assert.Zero(t, f.geocoder.calls)
}

func TestCheckoutUnwindsWhenGatewayFails(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.failErr = errors.New("stripe unreachable")

	_, err := f.svc.Checkout(context.Background(), collectInput(f, Line{ProductID: f.brick.ID, Qty: 20}))
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeDependency, appErr.Code())

	// stock went back and the order is gone
	assert.Equal(t, 100, f.available(t, f.brick.ID))
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.events.events)
}

func TestQuoteTakesNoStock(t *testing.T) {
	f := newCheckoutFixture(t)

	quote, err := f.svc.Quote(context.Background(), collectInput(f, Line{ProductID: f.brick.ID, Qty: 100}))
	require.NoError(t, err)
	assert.Equal(t, 9500, quote.SubtotalCents)
	require.Len(t, quote.Lines, 1)
	assert.Equal(t, 500, quote.Lines[0].Quote.SavingsCents())

	assert.Equal(t, 100, f.available(t, f.brick.ID))
	var count int64
	require.NoError(t, f.db.Model(&models.StockReservation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckoutRejectsBadCarts(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Checkout(context.Background(), collectInput(f))
	require.Error(t, err)

	_, err = f.svc.Checkout(context.Background(), collectInput(f, Line{ProductID: f.brick.ID, Qty: 0}))
	require.Error(t, err)

	_, err = f.svc.Checkout(context.Background(), collectInput(f,
		Line{ProductID: f.brick.ID, Qty: 1},
		Line{ProductID: f.brick.ID, Qty: 2},
	))
	require.Error(t, err)

	input := collectInput(f, Line{ProductID: f.brick.ID, Qty: 1})
	input.Guest = nil
	_, err = f.svc.Checkout(context.Background(), input)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
