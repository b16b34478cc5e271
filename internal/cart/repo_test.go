package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  total NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  category TEXT NOT NULL,
  image_url TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL,
  line_subtotal NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(cartItems).Error)

	return db
}

func TestCreateActiveAndFindRoundTrip(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	created, err := repo.CreateActive(ctx, userID)
	require.NoError(t, err)

	found, err := repo.FindActiveByUser(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, enums.CartStatusActive, found.Status)
	assert.Empty(t, found.Items)
}

func TestFindActiveByUserMissing(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindActiveByUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReplaceItemsSwapsRowsAndTotal(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	created, err := repo.CreateActive(ctx, userID)
	require.NoError(t, err)

	first := []models.CartItem{{
		ProductID:    uuid.New(),
		Name:         "Bananas",
		Price:        decimal.RequireFromString("1.25"),
		Category:     enums.ProductCategoryProduce,
		Quantity:     2,
		LineSubtotal: decimal.RequireFromString("2.50"),
	}}
	require.NoError(t, repo.ReplaceItems(ctx, created.ID, first, decimal.RequireFromString("2.50")))

	second := []models.CartItem{
		{
			ProductID:    uuid.New(),
			Name:         "Whole Milk",
			Price:        decimal.RequireFromString("3.50"),
			Category:     enums.ProductCategoryDairy,
			Quantity:     1,
			LineSubtotal: decimal.RequireFromString("3.50"),
		},
		{
			ProductID:    uuid.New(),
			Name:         "Sourdough Loaf",
			Price:        decimal.RequireFromString("3.25"),
			Category:     enums.ProductCategoryBakery,
			Quantity:     2,
			LineSubtotal: decimal.RequireFromString("6.50"),
		},
	}
	require.NoError(t, repo.ReplaceItems(ctx, created.ID, second, decimal.RequireFromString("10.00")))

	found, err := repo.FindActiveByUser(ctx, userID)
	require.NoError(t, err)

	require.Len(t, found.Items, 2)
	assert.True(t, found.Total.Equal(decimal.RequireFromString("10.00")))
	names := []string{found.Items[0].Name, found.Items[1].Name}
	assert.NotContains(t, names, "Bananas")
}

func TestClearItemsEmptiesCart(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	created, err := repo.CreateActive(ctx, userID)
	require.NoError(t, err)

	items := []models.CartItem{{
		ProductID:    uuid.New(),
		Name:         "Bananas",
		Price:        decimal.RequireFromString("1.25"),
		Category:     enums.ProductCategoryProduce,
		Quantity:     4,
		LineSubtotal: decimal.RequireFromString("5.00"),
	}}
	require.NoError(t, repo.ReplaceItems(ctx, created.ID, items, decimal.RequireFromString("5.00")))
	require.NoError(t, repo.ClearItems(ctx, created.ID))

	found, err := repo.FindActiveByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, found.Items)
	assert.True(t, found.Total.IsZero())
}

func TestMarkConvertedHidesCartFromActiveLookup(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	created, err := repo.CreateActive(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, repo.MarkConverted(ctx, created.ID))

	_, err = repo.FindActiveByUser(ctx, userID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// A new active cart can now be created for the same user.
	fresh, err := repo.CreateActive(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, fresh.ID)
}
