package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/internal/sales"
)

// Scope narrows a read to one staff cashier and an inclusive date range.
type Scope struct {
	StaffID *uuid.UUID
	Start   *time.Time
	End     *time.Time
}

type ListSalesInput struct {
	Scope
	Sort   string
	Page   *int
	Limit  int
	Cursor string
}

type SalesMeta struct {
	Total      int64
	Limit      int
	Page       *int
	NextCursor *string
}

type SalesPage struct {
	Data []sales.Sale
	Meta SalesMeta
}

type ListTransactionsInput struct {
	Scope
	Page  int
	Limit int
}

type TransactionsMeta struct {
	Total int64
	Limit int
	Page  int
}

// Summary is a transaction reconstructed from its sale rows.
type Summary struct {
	ID            uuid.UUID
	Cashier       sales.CashierAttribution
	CashierName   string
	ItemsCount    int
	TotalQuantity int
	Total         decimal.Decimal
	CreatedAt     time.Time
	LastCreatedAt time.Time
}

type TransactionsPage struct {
	Data []Summary
	Meta TransactionsMeta
}

type Detail struct {
	Summary Summary
	Sales   []sales.Sale
}

type ReceiptLine struct {
	SaleID    uuid.UUID
	ProductID uuid.UUID
	Name      string
	SKU       *string
	Barcode   *string
	UnitPrice decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
}

// Receipt is a POS-friendly view. Header totals are recomputed from the lines;
// MatchesStored reports whether they agree with the stored line totals.
type Receipt struct {
	Header        Summary
	Lines         []ReceiptLine
	MatchesStored bool
}
