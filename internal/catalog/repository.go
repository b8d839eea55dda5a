package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storetrack-backend/internal/repo"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
)

// Repository exposes the product reads and stock mutations the sales engine needs.
// Catalog CRUD lives elsewhere.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID returns the product in the store, or nil when absent.
func (r *Repository) FindByID(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error) {
	return findProduct(r.DB(ctx), storeID, productID, false)
}

// FindByIDs loads products of a store keyed by id. Unknown ids are skipped.
func (r *Repository) FindByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.DB(ctx).Scopes(repo.InStore(storeID)).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// LockForSale reads the product under a row lock inside tx so the price seen
// here is the price at the moment of the decrement.
func (r *Repository) LockForSale(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID) (*models.Product, error) {
	return findProduct(r.Conn(ctx, tx), storeID, productID, true)
}

// Refetch reads the product inside tx without the stock condition.
func (r *Repository) Refetch(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID) (*models.Product, error) {
	return findProduct(r.Conn(ctx, tx), storeID, productID, false)
}

// DecrementStock subtracts qty in a single conditional statement. It reports
// false when no row matched, meaning the product is gone or stock is short.
func (r *Repository) DecrementStock(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID, qty int, now time.Time) (bool, error) {
	res := r.Conn(ctx, tx).
		Model(&models.Product{}).
		Scopes(repo.InStore(storeID)).
		Where("id = ? AND quantity >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func findProduct(db *gorm.DB, storeID, productID uuid.UUID, lock bool) (*models.Product, error) {
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product models.Product
	err := db.Scopes(repo.InStore(storeID)).Where("id = ?", productID).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
