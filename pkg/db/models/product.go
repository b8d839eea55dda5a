package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry owned by a store. Price and cost are nullable
// because catalog writes happen outside the sales engine.
type Product struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID           uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	Name              string              `gorm:"column:name;not null"`
	SKU               *string             `gorm:"column:sku"`
	Barcode           *string             `gorm:"column:barcode"`
	Price             decimal.NullDecimal `gorm:"column:price;type:numeric(12,2)"`
	CostPrice         decimal.NullDecimal `gorm:"column:cost_price;type:numeric(12,2)"`
	Quantity          int                 `gorm:"column:quantity;not null;default:0"`
	LowStockThreshold int                 `gorm:"column:low_stock_threshold;not null;default:0"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
