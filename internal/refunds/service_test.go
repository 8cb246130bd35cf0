package refunds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brickfield/brickfield-backend/internal/orders"
	"github.com/brickfield/brickfield-backend/internal/payments"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/brickfield/brickfield-backend/pkg/logger"
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

type stubGateway struct {
	calls   int
	failErr error
}

func (g *stubGateway) CreateIntent(ctx context.Context, amountCents int, orderID uuid.UUID, orderNumber string) (*payments.Intent, error) {
	return &payments.Intent{Reference: "pi_stub", ClientSecret: "secret"}, nil
}

func (g *stubGateway) Refund(ctx context.Context, paymentRef string, amountCents int) (*payments.RefundResult, error) {
	g.calls++
	if g.failErr != nil {
		return nil, g.failErr
	}
	return &payments.RefundResult{ID: "re_stub"}, nil
}

func setupRefundsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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
		`CREATE TABLE IF NOT EXISTS order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  actor TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS refund_requests (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  requested_by TEXT,
  reason TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  prior_order_status TEXT NOT NULL,
  amount_cents INTEGER NOT NULL DEFAULT 0,
  admin_notes TEXT,
  gateway_refund_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  resolved_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type refundsFixture struct {
	db      *gorm.DB
	svc     Service
	repo    Repository
	gateway *stubGateway
}

func newRefundsFixture(t *testing.T) *refundsFixture {
	t.Helper()

	db := setupRefundsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)
	gateway := &stubGateway{}
	logg := logger.New(logger.Options{ServiceName: "refunds-test", Level: zerolog.ErrorLevel})

	svc, err := NewService(gormTxRunner{db: db}, repo, orders.NewRepository(db), gateway, nil, logg)
	require.NoError(t, err)

	return &refundsFixture{db: db, svc: svc, repo: repo, gateway: gateway}
}

func (f *refundsFixture) seedPaidOrder(t *testing.T, totalCents int, withPaymentRef bool) *models.Order {
	t.Helper()

	now := time.Now().UTC()
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "BF-TEST-" + uuid.NewString()[:8],
		DeliveryMethod: enums.DeliveryMethodDelivery,
		SubtotalCents:  totalCents,
		TotalCents:     totalCents,
		Status:         enums.OrderStatusPaid,
		PaidAt:         &now,
	}
	if withPaymentRef {
		ref := "pi_" + uuid.NewString()
		order.PaymentRef = &ref
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func (f *refundsFixture) orderStatus(t *testing.T, orderID uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", orderID).Error)
	return order.Status
}

func (f *refundsFixture) refundedCents(t *testing.T, orderID uuid.UUID) int {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", orderID).Error)
	return order.RefundedCents
}

func TestRequestParksOrderInRefundRequested(t *testing.T) {
	f := newRefundsFixture(t)
	order := f.seedPaidOrder(t, 10000, true)

	request, err := f.svc.Request(context.Background(), order.ID, nil, "wrong bricks delivered")
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestStatusPending, request.Status)
	assert.Equal(t, enums.OrderStatusPaid, request.PriorOrderStatus)
	assert.Equal(t, enums.OrderStatusRefundRequested, f.orderStatus(t, order.ID))

	// only one open request at a time
	_, err = f.svc.Request(context.Background(), order.ID, nil, "still wrong")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeRefundAlreadyPending, appErr.Code())
}

func TestRequestRejectsFullyRefundedOrder(t *testing.T) {
	f := newRefundsFixture(t)
	order := f.seedPaidOrder(t, 10000, true)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("refunded_cents", 10000).Error)

	_, err := f.svc.Request(context.Background(), order.ID, nil, "everything")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNothingRefundable, appErr.Code())
}

func TestApprovePartialRestoresPriorStatus(t *testing.T) {
	f := newRefundsFixture(t)
	order := f.seedPaidOrder(t, 10000, true)

	request, err := f.svc.Request(context.Background(), order.ID, nil, "short delivery")
	require.NoError(t, err)

	approved, err := f.svc.Approve(context.Background(), request.ID, 6000, "two pallets short", "admin")
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestStatusApproved, approved.Status)
	assert.Equal(t, 6000, approved.AmountCents)
	require.NotNil(t, approved.GatewayRefundID)
	assert.Equal(t, "re_stub", *approved.GatewayRefundID)

	assert.Equal(t, 6000, f.refundedCents(t, order.ID))
	// partial refund puts the order back where it was
	assert.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))
	assert.Equal(t, 1, f.gateway.calls)
}

func TestApproveCeilingTracksRefundedToDate(t *testing.T) {
	f := newRefundsFixture(t)
	order := f.seedPaidOrder(t, 10000, true)

	first, err := f.svc.Request(context.Background(), order.ID, nil, "short delivery")
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), first.ID, 6000, "", "admin")
	require.NoError(t, err)

	second, err := f.svc.Request(context.Background(), order.ID, nil, "damaged bricks")
	require.NoError(t, err)

	// 5000 would push the total past 10000
	_, err = f.svc.Approve(context.Background(), second.ID, 5000, "", "admin")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeAmountExceedsRefundable, appErr.Code())

	// the remaining 4000 is fine and fully refunds the order
	approved, err := f.svc.Approve(context.Background(), second.ID, 4000, "", "admin")
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestStatusApproved, approved.Status)
	assert.Equal(t, 10000, f.refundedCents(t, order.ID))
	assert.Equal(t, enums.OrderStatusRefunded, f.orderStatus(t, order.ID))
}

func TestApproveRequiresPaymentReference(t *testing.T) {
	f := newRefundsFixture(t)
	order := f.seedPaidOrder(t, 10000, false)

	request, err := f.svc.Request(context.Background(), order.ID, nil, "no gateway ref")
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), request.ID, 1000, "", "admin")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNoPaymentReference, appErr.Code())
	assert.Equal(t, 0, f.gateway.calls)

	stored, err := f.svc.Get(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestStatusPending, stored.Status)
}

func TestGatewayFailureLeavesRequestPending(t *testing.T) {
	f := newRefundsFixture(t)
	order := f.seedPaidOrder(t, 10000, true)

	request, err := f.svc.Request(context.Background(), order.ID, nil, "gateway down")
	require.NoError(t, err)

	f.gateway.failErr = errors.New("stripe 500")
	_, err = f.svc.Approve(context.Background(), request.ID, 5000, "", "admin")
	require.Error(t, err)

	stored, err := f.svc.Get(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestStatusPending, stored.Status)
	assert.Equal(t, 0, f.refundedCents(t, order.ID))
	assert.Equal(t, enums.OrderStatusRefundRequested, f.orderStatus(t, order.ID))

	// a retry after the gateway recovers succeeds
	f.gateway.failErr = nil
	approved, err := f.svc.Approve(context.Background(), request.ID, 5000, "", "admin")
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestStatusApproved, approved.Status)
}

func TestApproveClaimedRequestConflicts(t *testing.T) {
	f := newRefundsFixture(t)
	order := f.seedPaidOrder(t, 10000, true)

	request, err := f.svc.Request(context.Background(), order.ID, nil, "double click")
	require.NoError(t, err)

	claimed, err := f.repo.Claim(context.Background(), request.ID, enums.RefundRequestStatusPending, enums.RefundRequestStatusProcessing)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = f.svc.Approve(context.Background(), request.ID, 5000, "", "admin")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
	assert.Equal(t, 0, f.gateway.calls)
}

func TestRejectRestoresPriorStatusAndRequiresNotes(t *testing.T) {
	f := newRefundsFixture(t)
	order := f.seedPaidOrder(t, 10000, true)

	request, err := f.svc.Request(context.Background(), order.ID, nil, "changed mind")
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), request.ID, "   ", "admin")
	require.Error(t, err)

	rejected, err := f.svc.Reject(context.Background(), request.ID, "outside the returns window", "admin")
	require.NoError(t, err)
	assert.Equal(t, enums.RefundRequestStatusRejected, rejected.Status)
	require.NotNil(t, rejected.AdminNotes)

	assert.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))
	assert.Equal(t, 0, f.refundedCents(t, order.ID))
}
