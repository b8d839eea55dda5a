package sales

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
)

// Sale is one recorded product line.
type Sale struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	StoreID       uuid.UUID
	ProductID     uuid.UUID
	ProductName   string
	UnitPrice     decimal.Decimal
	UnitCostPrice decimal.NullDecimal
	Quantity      int
	TotalPrice    decimal.Decimal
	Cashier       CashierAttribution
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LineInput is a priced line ready to be written.
type LineInput struct {
	TransactionID uuid.UUID
	StoreID       uuid.UUID
	ProductID     uuid.UUID
	ProductName   string
	UnitPrice     decimal.Decimal
	UnitCostPrice decimal.NullDecimal
	Quantity      int
	Cashier       CashierAttribution
	At            time.Time
}

var (
	errNonPositiveQuantity = errors.New("sale quantity must be at least 1")
	errNegativePrice       = errors.New("sale unit price must not be negative")
	errMissingCashier      = errors.New("sale requires a cashier attribution")
)

// NewSale builds a sale line. The total is always unit price times quantity.
func NewSale(in LineInput) (Sale, error) {
	if in.Quantity < 1 {
		return Sale{}, errNonPositiveQuantity
	}
	if in.UnitPrice.IsNegative() {
		return Sale{}, errNegativePrice
	}
	if in.Cashier == nil {
		return Sale{}, errMissingCashier
	}
	at := in.At.UTC()
	return Sale{
		ID:            uuid.New(),
		TransactionID: in.TransactionID,
		StoreID:       in.StoreID,
		ProductID:     in.ProductID,
		ProductName:   in.ProductName,
		UnitPrice:     in.UnitPrice,
		UnitCostPrice: in.UnitCostPrice,
		Quantity:      in.Quantity,
		TotalPrice:    in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
		Cashier:       in.Cashier,
		CreatedAt:     at,
		UpdatedAt:     at,
	}, nil
}

// GroupID is the transaction the sale belongs to.
func (s Sale) GroupID() uuid.UUID {
	if s.TransactionID == uuid.Nil {
		return s.ID
	}
	return s.TransactionID
}

func (s Sale) toModel() models.Sale {
	row := models.Sale{
		ID:                  s.ID,
		StoreID:             s.StoreID,
		ProductID:           s.ProductID,
		ProductNameSnapshot: s.ProductName,
		UnitPrice:           s.UnitPrice,
		UnitCostPrice:       s.UnitCostPrice,
		Quantity:            s.Quantity,
		TotalPrice:          s.TotalPrice,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	if s.TransactionID != uuid.Nil {
		txID := s.TransactionID
		row.TransactionID = &txID
	}
	applyAttribution(&row, s.Cashier)
	return row
}

// FromModel converts a stored row. Rows written before transaction grouping
// carry no transaction id and are reported as their own transaction.
func FromModel(row models.Sale) (Sale, error) {
	cashier, err := attributionFromRow(row)
	if err != nil {
		return Sale{}, err
	}
	txID := row.ID
	if row.TransactionID != nil {
		txID = *row.TransactionID
	}
	return Sale{
		ID:            row.ID,
		TransactionID: txID,
		StoreID:       row.StoreID,
		ProductID:     row.ProductID,
		ProductName:   row.ProductNameSnapshot,
		UnitPrice:     row.UnitPrice,
		UnitCostPrice: row.UnitCostPrice,
		Quantity:      row.Quantity,
		TotalPrice:    row.TotalPrice,
		Cashier:       cashier,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}, nil
}
