package products

import (
	"context"
	"fmt"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogEntry joins a product with its live stock counters.
type CatalogEntry struct {
	Product      models.Product
	AvailableQty int
	ReservedQty  int
	LowStock     bool
}

// Repository provides catalog reads and product management.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	ListActive(ctx context.Context) ([]CatalogEntry, error)
	ListLowStock(ctx context.Context) ([]CatalogEntry, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the product repository.
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

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

type catalogRow struct {
	models.Product
	AvailableQty      int
	ReservedQty       int
	LowStockThreshold int
}

func (r *repository) ListActive(ctx context.Context) ([]CatalogEntry, error) {
	var rows []catalogRow
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.*, inventory_items.available_qty, inventory_items.reserved_qty, inventory_items.low_stock_threshold").
		Joins("LEFT JOIN inventory_items ON inventory_items.product_id = products.id").
		Where("products.active = ?", true).
		Order("products.sku ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return toEntries(rows), nil
}

func (r *repository) ListLowStock(ctx context.Context) ([]CatalogEntry, error) {
	var rows []catalogRow
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.*, inventory_items.available_qty, inventory_items.reserved_qty, inventory_items.low_stock_threshold").
		Joins("JOIN inventory_items ON inventory_items.product_id = products.id").
		Where("products.active = ?", true).
		Where("inventory_items.available_qty <= inventory_items.low_stock_threshold").
		Order("inventory_items.available_qty ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return toEntries(rows), nil
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product required")
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product required")
	}
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func toEntries(rows []catalogRow) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, CatalogEntry{
			Product:      row.Product,
			AvailableQty: row.AvailableQty,
			ReservedQty:  row.ReservedQty,
			LowStock:     row.AvailableQty <= row.LowStockThreshold,
		})
	}
	return entries
}
