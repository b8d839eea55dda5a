package sales

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

// SaleDTO is the wire shape of a sale line.
type SaleDTO struct {
	ID                  uuid.UUID         `json:"id"`
	TransactionID       uuid.UUID         `json:"transactionId"`
	Store               uuid.UUID         `json:"store"`
	Product             uuid.UUID         `json:"product"`
	ProductNameSnapshot string            `json:"productNameSnapshot"`
	UnitPrice           json.Number       `json:"unitPrice"`
	UnitCostPrice       *json.Number      `json:"unitCostPrice"`
	Quantity            int               `json:"quantity"`
	TotalPrice          json.Number       `json:"totalPrice"`
	CashierType         enums.CashierType `json:"cashierType"`
	Staff               *uuid.UUID        `json:"staff"`
	CashierUser         *uuid.UUID        `json:"cashierUser"`
	CashierNameSnapshot string            `json:"cashierNameSnapshot"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// Money renders an exact decimal as a JSON number.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// NullMoney renders a nullable decimal, nil when absent.
func NullMoney(d decimal.NullDecimal) *json.Number {
	if !d.Valid {
		return nil
	}
	n := Money(d.Decimal)
	return &n
}

func ToDTO(s Sale) SaleDTO {
	return SaleDTO{
		ID:                  s.ID,
		TransactionID:       s.GroupID(),
		Store:               s.StoreID,
		Product:             s.ProductID,
		ProductNameSnapshot: s.ProductName,
		UnitPrice:           Money(s.UnitPrice),
		UnitCostPrice:       NullMoney(s.UnitCostPrice),
		Quantity:            s.Quantity,
		TotalPrice:          Money(s.TotalPrice),
		CashierType:         s.Cashier.Type(),
		Staff:               StaffID(s.Cashier),
		CashierUser:         UserID(s.Cashier),
		CashierNameSnapshot: s.Cashier.DisplayName(),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func ToDTOs(list []Sale) []SaleDTO {
	out := make([]SaleDTO, 0, len(list))
	for _, s := range list {
		out = append(out, ToDTO(s))
	}
	return out
}
