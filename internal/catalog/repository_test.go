package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
)

func seedProduct(t *testing.T, db *gorm.DB, storeID uuid.UUID, qty int) models.Product {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		StoreID:  storeID,
		Name:     "Milk",
		Price:    decimal.NewNullDecimal(decimal.RequireFromString("4.50")),
		Quantity: qty,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestDecrementStockConditional(t *testing.T) {
	db := dbtest.Open(t, &models.Product{})
	repo := NewRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	product := seedProduct(t, db, storeID, 5)

	ok, err := repo.DecrementStock(ctx, db, storeID, product.ID, 3, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.DecrementStock(ctx, db, storeID, product.ID, 3, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, ok, "second decrement must not drive stock negative")

	reloaded, err := repo.FindByID(ctx, storeID, product.ID)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Quantity)
}

func TestDecrementStockScopedToStore(t *testing.T) {
	db := dbtest.Open(t, &models.Product{})
	repo := NewRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, uuid.New(), 5)

	ok, err := repo.DecrementStock(ctx, db, uuid.New(), product.ID, 1, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFindByIDMissingReturnsNil(t *testing.T) {
	db := dbtest.Open(t, &models.Product{})
	repo := NewRepository(db)

	got, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLockForSaleReadsPrice(t *testing.T) {
	db := dbtest.Open(t, &models.Product{})
	repo := NewRepository(db)
	storeID := uuid.New()
	product := seedProduct(t, db, storeID, 5)

	got, err := repo.LockForSale(context.Background(), db, storeID, product.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Price.Valid)
	require.True(t, got.Price.Decimal.Equal(decimal.RequireFromString("4.5")))
	require.False(t, got.CostPrice.Valid)
}

func TestFindByIDs(t *testing.T) {
	db := dbtest.Open(t, &models.Product{})
	repo := NewRepository(db)
	storeID := uuid.New()
	a := seedProduct(t, db, storeID, 1)
	b := seedProduct(t, db, storeID, 2)
	foreign := seedProduct(t, db, uuid.New(), 3)

	got, err := repo.FindByIDs(context.Background(), storeID, []uuid.UUID{a.ID, b.ID, foreign.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 2, got[b.ID].Quantity)
}
