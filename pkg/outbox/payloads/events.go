package payloads

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

// SaleTransactionRecordedEvent is emitted once per committed checkout or single sale.
// Reporting projections rebuild revenue and profit from it.
type SaleTransactionRecordedEvent struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	StoreID       uuid.UUID         `json:"store_id"`
	CashierType   enums.CashierType `json:"cashier_type"`
	CashierID     uuid.UUID         `json:"cashier_id"`
	CashierName   string            `json:"cashier_name"`
	ItemsCount    int               `json:"items_count"`
	TotalQuantity int               `json:"total_quantity"`
	Total         json.Number       `json:"total"`
	RecordedAt    time.Time         `json:"recorded_at"`
	Lines         []SaleLine        `json:"lines"`
}

// SaleLine is one product line inside SaleTransactionRecordedEvent.
type SaleLine struct {
	SaleID        uuid.UUID    `json:"sale_id"`
	ProductID     uuid.UUID    `json:"product_id"`
	ProductName   string       `json:"product_name"`
	Quantity      int          `json:"quantity"`
	UnitPrice     json.Number  `json:"unit_price"`
	UnitCostPrice *json.Number `json:"unit_cost_price,omitempty"`
	TotalPrice    json.Number  `json:"total_price"`
}
