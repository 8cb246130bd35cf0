package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/brickfield/brickfield-backend/internal/broadcast"
	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const holdSweepBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sweepInventory interface {
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error)
	Release(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error
	GetItem(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error)
}

type skuResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// HoldSweepJobParams configure the expired reservation sweep.
type HoldSweepJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Inventory sweepInventory
	Products  skuResolver
	Publisher broadcast.Publisher
}

// NewHoldSweepJob builds the job that returns lapsed holds to the shelf.
func NewHoldSweepJob(params HoldSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product resolver required")
	}
	return &holdSweepJob{
		logg:      params.Logger,
		db:        params.DB,
		inventory: params.Inventory,
		products:  params.Products,
		publisher: params.Publisher,
		now:       time.Now,
	}, nil
}

type holdSweepJob struct {
	logg      *logger.Logger
	db        txRunner
	inventory sweepInventory
	products  skuResolver
	publisher broadcast.Publisher
	now       func() time.Time
}

func (j *holdSweepJob) Name() string { return "hold-sweep" }

// Run releases every reservation whose expiry has passed. Each hold gets its
// own transaction so one bad row cannot wedge the whole sweep.
func (j *holdSweepJob) Run(ctx context.Context) error {
	expired, err := j.inventory.ListExpired(ctx, j.now().UTC(), holdSweepBatchSize)
	if err != nil {
		return fmt.Errorf("list expired holds: %w", err)
	}

	released := 0
	var failed int
	for _, hold := range expired {
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.inventory.Release(ctx, tx, hold.ID)
		})
		if err != nil {
			failed++
			j.logg.Error(j.logg.WithField(ctx, "reservation_id", hold.ID.String()), "releasing expired hold failed", err)
			continue
		}
		released++
		j.announce(ctx, hold)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"released": released, "failed": failed})
	j.logg.Info(logCtx, "expired hold sweep complete")
	if failed > 0 {
		return fmt.Errorf("failed to release %d of %d expired holds", failed, len(expired))
	}
	return nil
}

func (j *holdSweepJob) announce(ctx context.Context, hold models.StockReservation) {
	if j.publisher == nil {
		return
	}
	sku := ""
	if product, err := j.products.FindByID(ctx, hold.ProductID); err == nil {
		sku = product.SKU
	}
	availableAfter := 0
	if item, err := j.inventory.GetItem(ctx, hold.ProductID); err == nil {
		availableAfter = item.AvailableQty
	}
	j.publisher.StockReleased(ctx, hold.ProductID, sku, hold.Qty, availableAfter)
}
