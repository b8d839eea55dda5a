package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/internal/sales"
)

// SingleSaleRequest records one product line.
type SingleSaleRequest struct {
	ProductID uuid.UUID
	Quantity  int
	// StaffID is the client-supplied staff field. Owners and managers may not
	// send it; it is ignored for staff callers.
	StaffID *uuid.UUID
}

// Item is one requested line before duplicate merge.
type Item struct {
	ProductID uuid.UUID
	Quantity  int
}

// CheckoutRequest records several lines as one transaction.
type CheckoutRequest struct {
	Items         []Item
	StaffID       *uuid.UUID
	ExpectedTotal *decimal.Decimal
}

// TransactionSummary describes the transaction a checkout produced.
type TransactionSummary struct {
	ID         uuid.UUID
	Cashier    sales.CashierAttribution
	ItemsCount int
	Total      decimal.Decimal
	CreatedAt  time.Time
}

// TotalValidation compares the client's expected total with the server total.
// Matches is nil when the client sent no expectation.
type TotalValidation struct {
	ClientExpectedTotal *decimal.Decimal
	ServerTotal         decimal.Decimal
	Matches             *bool
}

type CheckoutResult struct {
	Transaction TransactionSummary
	Sales       []sales.Sale
	Validation  TotalValidation
}

// StockErrorDetails is attached to NotFound, InsufficientStock and
// InvalidPricing errors so a POS client can prompt a correction.
type StockErrorDetails struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Available   *int      `json:"available,omitempty"`
	Requested   *int      `json:"requested,omitempty"`
}

type line struct {
	productID uuid.UUID
	quantity  int
}

// MaxLineQuantity caps the units a single product line may sell, before
// and after duplicate lines are merged.
const MaxLineQuantity = 1_000_000

// mergeLines sums quantities per product, keeping first-occurrence order.
func mergeLines(items []Item) []line {
	index := make(map[uuid.UUID]int, len(items))
	out := make([]line, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.ProductID]; ok {
			out[pos].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, line{productID: item.ProductID, quantity: item.Quantity})
	}
	return out
}

func compareTotals(expected *decimal.Decimal, server decimal.Decimal) TotalValidation {
	v := TotalValidation{ClientExpectedTotal: expected, ServerTotal: server}
	if expected != nil {
		matches := expected.Round(2).Equal(server.Round(2))
		v.Matches = &matches
	}
	return v
}
