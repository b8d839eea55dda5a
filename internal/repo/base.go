package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by the gorm repositories. It holds the pool used when a
// method is not handed an open transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the pool bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	return b.Conn(ctx, nil)
}

// Conn prefers tx over the pool so the same repository method works inside
// and outside db.Client.WithTx.
func (b Base) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	conn := tx
	if conn == nil {
		conn = b.db
	}
	if ctx == nil {
		return conn
	}
	return conn.WithContext(ctx)
}

// InStore restricts a single-table query to one tenant.
func InStore(storeID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("store_id = ?", storeID)
	}
}
