package zones

import (
	"context"
	"fmt"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages delivery zone definitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.DeliveryZone, error)
	ListAll(ctx context.Context) ([]models.DeliveryZone, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
	Create(ctx context.Context, zone *models.DeliveryZone) error
	Update(ctx context.Context, zone *models.DeliveryZone) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the delivery zone repository.
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

// ListActive returns active zones ordered by ascending radius so the first
// zone containing a point is the tightest one.
func (r *repository) ListActive(ctx context.Context) ([]models.DeliveryZone, error) {
	var zones []models.DeliveryZone
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("radius_km ASC").
		Find(&zones).Error
	if err != nil {
		return nil, fmt.Errorf("list active zones: %w", err)
	}
	return zones, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.DeliveryZone, error) {
	var zones []models.DeliveryZone
	err := r.db.WithContext(ctx).
		Order("radius_km ASC").
		Find(&zones).Error
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return zones, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	var zone models.DeliveryZone
	err := r.db.WithContext(ctx).First(&zone, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *repository) Create(ctx context.Context, zone *models.DeliveryZone) error {
	if zone == nil {
		return fmt.Errorf("zone required")
	}
	if err := r.db.WithContext(ctx).Create(zone).Error; err != nil {
		return fmt.Errorf("create zone: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, zone *models.DeliveryZone) error {
	if zone == nil {
		return fmt.Errorf("zone required")
	}
	if err := r.db.WithContext(ctx).Save(zone).Error; err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.DeliveryZone{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	return nil
}
