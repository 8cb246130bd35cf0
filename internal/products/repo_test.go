package products

import (
	"context"
	"testing"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  unit TEXT NOT NULL DEFAULT 'each',
  unit_price_cents INTEGER NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	inventory := `
CREATE TABLE IF NOT EXISTS inventory_items (
  product_id TEXT PRIMARY KEY,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 0,
  holding_period_minutes INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(inventory).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, priceCents, available, threshold int, active bool) models.Product {
	t.Helper()

	product := models.Product{
		ID:             uuid.New(),
		SKU:            sku,
		Name:           "Common brick " + sku,
		Unit:           "pallet",
		UnitPriceCents: priceCents,
		Active:         active,
	}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Create(&models.InventoryItem{
		ProductID:         product.ID,
		AvailableQty:      available,
		LowStockThreshold: threshold,
	}).Error)
	return product
}

func TestListActiveJoinsStockCounters(t *testing.T) {
	db := setupProductsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	seedProduct(t, db, "BRK-100", 55, 400, 50, true)
	seedProduct(t, db, "BRK-200", 72, 10, 50, true)
	seedProduct(t, db, "BRK-300", 99, 0, 0, false)

	entries, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "BRK-100", entries[0].Product.SKU)
	assert.Equal(t, 400, entries[0].AvailableQty)
	assert.False(t, entries[0].LowStock)
	assert.True(t, entries[1].LowStock)
}

func TestListLowStockFiltersByThreshold(t *testing.T) {
	db := setupProductsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	seedProduct(t, db, "BRK-100", 55, 400, 50, true)
	low := seedProduct(t, db, "BRK-200", 72, 10, 50, true)

	entries, err := repo.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, low.SKU, entries[0].Product.SKU)
}

func TestFindBySKU(t *testing.T) {
	db := setupProductsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	seeded := seedProduct(t, db, "BRK-100", 55, 400, 50, true)

	found, err := repo.FindBySKU(context.Background(), "BRK-100")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindBySKU(context.Background(), "BRK-999")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
