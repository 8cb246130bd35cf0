package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	pkgerrors "github.com/brickfield/brickfield-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReserveRequest asks for a hold on a quantity of one product.
type ReserveRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// Service owns the reservation lifecycle: reserve, commit, release.
// The tx-scoped methods expect to run inside the caller's transaction so
// checkout can make an all-or-nothing pass across multiple lines.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, req ReserveRequest, holdFor time.Duration) (*models.StockReservation, error)
	Commit(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error
	AttachOrder(ctx context.Context, tx *gorm.DB, reservationIDs []uuid.UUID, orderID uuid.UUID) error
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error)
	HoldingPeriodFor(ctx context.Context, productID uuid.UUID, fallback time.Duration) time.Duration
	SetStock(ctx context.Context, productID uuid.UUID, availableQty, lowStockThreshold, holdingPeriodMinutes int) (*models.InventoryItem, error)
	GetItem(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error)
}

type service struct {
	repo Repository
}

// NewService builds the inventory service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

// Reserve takes stock and records the hold. The whole call happens inside the
// caller's tx so a later line failing rolls this hold back too.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, req ReserveRequest, holdFor time.Duration) (*models.StockReservation, error) {
	if req.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reserve qty must be positive")
	}
	if holdFor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "holding period must be positive")
	}

	if err := takeStock(ctx, tx, req.ProductID, req.Qty); err != nil {
		return nil, err
	}

	reservation := &models.StockReservation{
		ID:        uuid.New(),
		ProductID: req.ProductID,
		Qty:       req.Qty,
		Status:    enums.ReservationStatusReserved,
		ExpiresAt: time.Now().UTC().Add(holdFor),
	}
	if err := s.repo.WithTx(tx).CreateReservation(ctx, reservation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording reservation")
	}
	return reservation, nil
}

// Commit finalizes a hold after payment: the stock leaves the warehouse
// ledger entirely. Committing twice is a no-op.
func (s *service) Commit(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error {
	repo := s.repo.WithTx(tx)

	reservation, err := repo.FindReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading reservation")
	}

	switch reservation.Status {
	case enums.ReservationStatusCommitted:
		return nil
	case enums.ReservationStatusReleased:
		return pkgerrors.New(pkgerrors.CodeReservationExpired, "reservation already released")
	}

	flipped, err := repo.TransitionReservation(ctx, reservationID, enums.ReservationStatusReserved, enums.ReservationStatusCommitted)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "committing reservation")
	}
	if !flipped {
		// lost the race; re-read to report the terminal state
		return s.Commit(ctx, tx, reservationID)
	}

	return drainStock(ctx, tx, reservation.ProductID, reservation.Qty)
}

// Release returns a hold's stock to the available pool. Releasing twice is a
// no-op; releasing a committed hold is a conflict.
func (s *service) Release(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error {
	repo := s.repo.WithTx(tx)

	reservation, err := repo.FindReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading reservation")
	}

	switch reservation.Status {
	case enums.ReservationStatusReleased:
		return nil
	case enums.ReservationStatusCommitted:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation already committed")
	}

	flipped, err := repo.TransitionReservation(ctx, reservationID, enums.ReservationStatusReserved, enums.ReservationStatusReleased)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "releasing reservation")
	}
	if !flipped {
		return s.Release(ctx, tx, reservationID)
	}

	return returnStock(ctx, tx, reservation.ProductID, reservation.Qty)
}

func (s *service) AttachOrder(ctx context.Context, tx *gorm.DB, reservationIDs []uuid.UUID, orderID uuid.UUID) error {
	if err := s.repo.WithTx(tx).AttachOrder(ctx, reservationIDs, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching reservations")
	}
	return nil
}

func (s *service) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error) {
	return s.repo.ListExpired(ctx, cutoff, limit)
}

// HoldingPeriodFor returns the product's configured hold window, or the
// fallback when the product has no override.
func (s *service) HoldingPeriodFor(ctx context.Context, productID uuid.UUID, fallback time.Duration) time.Duration {
	item, err := s.repo.FindItem(ctx, productID)
	if err != nil || item.HoldingPeriodMinutes <= 0 {
		return fallback
	}
	return time.Duration(item.HoldingPeriodMinutes) * time.Minute
}

// SetStock is the admin path for correcting counters after a physical count.
// Reserved stock is left untouched.
func (s *service) SetStock(ctx context.Context, productID uuid.UUID, availableQty, lowStockThreshold, holdingPeriodMinutes int) (*models.InventoryItem, error) {
	if availableQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available_qty cannot be negative")
	}
	if lowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_stock_threshold cannot be negative")
	}

	item, err := s.repo.FindItem(ctx, productID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
		}
		item = &models.InventoryItem{ProductID: productID}
	}

	item.AvailableQty = availableQty
	item.LowStockThreshold = lowStockThreshold
	if holdingPeriodMinutes >= 0 {
		item.HoldingPeriodMinutes = holdingPeriodMinutes
	}

	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving inventory item")
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindItem(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory item")
	}
	return item, nil
}
