package sales

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/internal/repo"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	"github.com/angelmondragon/storetrack-backend/pkg/pagination"
)

// Filter restricts ledger reads to a tenant and, optionally, one staff
// cashier and an inclusive date range.
type Filter struct {
	StoreID uuid.UUID
	StaffID *uuid.UUID
	Start   *time.Time
	End     *time.Time
}

// SaleQuery is a flat listing request. Cursor is only honoured for createdAt sorts.
type SaleQuery struct {
	Filter
	Sort   enums.SaleSortField
	Desc   bool
	Limit  int
	Offset int
	Cursor *pagination.Cursor
}

func (f Filter) apply(db *gorm.DB) *gorm.DB {
	db = db.Scopes(repo.InStore(f.StoreID))
	if f.StaffID != nil {
		db = db.Where("staff_id = ?", *f.StaffID)
	}
	if f.Start != nil {
		db = db.Where("created_at >= ?", f.Start.UTC())
	}
	if f.End != nil {
		db = db.Where("created_at <= ?", f.End.UTC())
	}
	return db
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}
