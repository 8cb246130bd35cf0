package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages reservation rows and inventory counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error)
	UpsertItem(ctx context.Context, item *models.InventoryItem) error
	CreateReservation(ctx context.Context, reservation *models.StockReservation) error
	FindReservation(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	FindReservationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error)
	// TransitionReservation flips a reservation between statuses only when it
	// still holds the expected status. False means another writer got there first.
	TransitionReservation(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error)
	AttachOrder(ctx context.Context, reservationIDs []uuid.UUID, orderID uuid.UUID) error
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the inventory repository.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &repository{db: db}, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItem(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpsertItem(ctx context.Context, item *models.InventoryItem) error {
	if item == nil {
		return fmt.Errorf("inventory item required")
	}
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("upsert inventory item: %w", err)
	}
	return nil
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.StockReservation) error {
	if reservation == nil {
		return fmt.Errorf("reservation required")
	}
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *repository) FindReservation(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var reservation models.StockReservation
	if err := r.db.WithContext(ctx).First(&reservation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindReservationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error) {
	var reservations []models.StockReservation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("find reservations by order: %w", err)
	}
	return reservations, nil
}

func (r *repository) TransitionReservation(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockReservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition reservation: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AttachOrder(ctx context.Context, reservationIDs []uuid.UUID, orderID uuid.UUID) error {
	if len(reservationIDs) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.StockReservation{}).
		Where("id IN ? AND status = ?", reservationIDs, enums.ReservationStatusReserved).
		Update("order_id", orderID)
	if res.Error != nil {
		return fmt.Errorf("attach reservations to order: %w", res.Error)
	}
	if res.RowsAffected != int64(len(reservationIDs)) {
		return fmt.Errorf("attach reservations to order: %d of %d holds still active", res.RowsAffected, len(reservationIDs))
	}
	return nil
}

func (r *repository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error) {
	var reservations []models.StockReservation
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.ReservationStatusReserved, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	return reservations, nil
}
