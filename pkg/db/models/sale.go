package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

// Sale is one product line of a recorded transaction. Rows are append-only.
type Sale struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID       *uuid.UUID          `gorm:"column:transaction_id;type:uuid"`
	StoreID             uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	ProductID           uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	ProductNameSnapshot string              `gorm:"column:product_name_snapshot;not null"`
	UnitPrice           decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	UnitCostPrice       decimal.NullDecimal `gorm:"column:unit_cost_price;type:numeric(12,2)"`
	Quantity            int                 `gorm:"column:quantity;not null"`
	TotalPrice          decimal.Decimal     `gorm:"column:total_price;type:numeric(14,2);not null"`
	CashierType         enums.CashierType   `gorm:"column:cashier_type;not null"`
	StaffID             *uuid.UUID          `gorm:"column:staff_id;type:uuid"`
	CashierUserID       *uuid.UUID          `gorm:"column:cashier_user_id;type:uuid"`
	CashierNameSnapshot string              `gorm:"column:cashier_name_snapshot;not null"`
	CreatedAt           time.Time           `gorm:"column:created_at"`
	UpdatedAt           time.Time           `gorm:"column:updated_at"`
}

func (Sale) TableName() string { return "sales" }
