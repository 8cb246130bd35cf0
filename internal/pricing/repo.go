package pricing

import (
	"context"
	"fmt"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository loads and manages bulk discount tiers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.BulkDiscountTier, error)
	ListAll(ctx context.Context) ([]models.BulkDiscountTier, error)
	Create(ctx context.Context, tier *models.BulkDiscountTier) error
	Update(ctx context.Context, tier *models.BulkDiscountTier) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the bulk discount tier repository.
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

// ListForProduct returns tiers applying to the product: product-specific
// tiers plus global tiers (product_id IS NULL).
func (r *repository) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.BulkDiscountTier, error) {
	var tiers []models.BulkDiscountTier
	err := r.db.WithContext(ctx).
		Where("product_id = ? OR product_id IS NULL", productID).
		Order("min_qty ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, fmt.Errorf("list discount tiers: %w", err)
	}
	return tiers, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.BulkDiscountTier, error) {
	var tiers []models.BulkDiscountTier
	err := r.db.WithContext(ctx).
		Order("min_qty ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, fmt.Errorf("list discount tiers: %w", err)
	}
	return tiers, nil
}

func (r *repository) Create(ctx context.Context, tier *models.BulkDiscountTier) error {
	if tier == nil {
		return fmt.Errorf("tier required")
	}
	if err := r.db.WithContext(ctx).Create(tier).Error; err != nil {
		return fmt.Errorf("create discount tier: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, tier *models.BulkDiscountTier) error {
	if tier == nil {
		return fmt.Errorf("tier required")
	}
	if err := r.db.WithContext(ctx).Save(tier).Error; err != nil {
		return fmt.Errorf("update discount tier: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.BulkDiscountTier{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete discount tier: %w", err)
	}
	return nil
}
