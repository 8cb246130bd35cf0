package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeSweepInventory struct {
	expired   []models.StockReservation
	released  []uuid.UUID
	failOn    uuid.UUID
	available int
}

func (f *fakeSweepInventory) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error) {
	return f.expired, nil
}

func (f *fakeSweepInventory) Release(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error {
	if reservationID == f.failOn {
		return errors.New("release failed")
	}
	f.released = append(f.released, reservationID)
	return nil
}

func (f *fakeSweepInventory) GetItem(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	return &models.InventoryItem{ProductID: productID, AvailableQty: f.available}, nil
}

type fakeSkuResolver struct{}

func (fakeSkuResolver) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return &models.Product{ID: id, SKU: "BRK-RED"}, nil
}

type fakePublisher struct {
	released []uuid.UUID
}

func (f *fakePublisher) StockReserved(ctx context.Context, productID uuid.UUID, sku string, qty, availableAfter int, originator string) {
}

func (f *fakePublisher) StockReleased(ctx context.Context, productID uuid.UUID, sku string, qty, availableAfter int) {
	f.released = append(f.released, productID)
}

func newHoldSweepJob(t *testing.T, inv *fakeSweepInventory, pub *fakePublisher) *holdSweepJob {
	t.Helper()
	job, err := NewHoldSweepJob(HoldSweepJobParams{
		Logger:    testLogger(),
		DB:        passthroughTxRunner{},
		Inventory: inv,
		Products:  fakeSkuResolver{},
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("setup job: %v", err)
	}
	return job.(*holdSweepJob)
}

func TestHoldSweepReleasesAndAnnounces(t *testing.T) {
	holds := []models.StockReservation{
		{ID: uuid.New(), ProductID: uuid.New(), Qty: 4},
		{ID: uuid.New(), ProductID: uuid.New(), Qty: 2},
	}
	inv := &fakeSweepInventory{expired: holds, available: 10}
	pub := &fakePublisher{}
	job := newHoldSweepJob(t, inv, pub)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(inv.released) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(inv.released))
	}
	if len(pub.released) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(pub.released))
	}
}

func TestHoldSweepContinuesPastFailedRelease(t *testing.T) {
	bad := models.StockReservation{ID: uuid.New(), ProductID: uuid.New(), Qty: 1}
	good := models.StockReservation{ID: uuid.New(), ProductID: uuid.New(), Qty: 3}
	inv := &fakeSweepInventory{expired: []models.StockReservation{bad, good}, failOn: bad.ID}
	pub := &fakePublisher{}
	job := newHoldSweepJob(t, inv, pub)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error reporting the failed release")
	}
	if len(inv.released) != 1 || inv.released[0] != good.ID {
		t.Fatalf("expected the healthy hold released, got %v", inv.released)
	}
	if len(pub.released) != 1 {
		t.Fatalf("no broadcast for the failed hold, got %d", len(pub.released))
	}
}

func TestHoldSweepNoPublisher(t *testing.T) {
	inv := &fakeSweepInventory{expired: []models.StockReservation{{ID: uuid.New(), ProductID: uuid.New(), Qty: 1}}}
	job := newHoldSweepJob(t, inv, nil)
	// Publisher is optional; the job must not panic without one
	job.publisher = nil

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(inv.released) != 1 {
		t.Fatalf("expected release, got %d", len(inv.released))
	}
}
