package checkout

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/internal/sales"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

type TransactionDTO struct {
	ID          uuid.UUID         `json:"id"`
	Staff       *uuid.UUID        `json:"staff"`
	StaffName   *string           `json:"staffName"`
	CashierType enums.CashierType `json:"cashierType"`
	CashierUser *uuid.UUID        `json:"cashierUser"`
	CashierName string            `json:"cashierName"`
	ItemsCount  int               `json:"itemsCount"`
	Total       json.Number       `json:"total"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type ValidationDTO struct {
	ClientExpectedTotal *json.Number `json:"clientExpectedTotal"`
	ServerTotal         json.Number  `json:"serverTotal"`
	Matches             *bool        `json:"matches"`
}

// CheckoutResponse is the 201 body of a checkout.
type CheckoutResponse struct {
	Transaction TransactionDTO  `json:"transaction"`
	Sales       []sales.SaleDTO `json:"sales"`
	Validation  ValidationDTO   `json:"validation"`
}

func ToResponse(r *CheckoutResult) CheckoutResponse {
	cashier := r.Transaction.Cashier
	var staffName *string
	if cashier.Type() == enums.CashierTypeStaff {
		name := cashier.DisplayName()
		staffName = &name
	}
	var expected *json.Number
	if r.Validation.ClientExpectedTotal != nil {
		n := sales.Money(*r.Validation.ClientExpectedTotal)
		expected = &n
	}
	return CheckoutResponse{
		Transaction: TransactionDTO{
			ID:          r.Transaction.ID,
			Staff:       sales.StaffID(cashier),
			StaffName:   staffName,
			CashierType: cashier.Type(),
			CashierUser: sales.UserID(cashier),
			CashierName: cashier.DisplayName(),
			ItemsCount:  r.Transaction.ItemsCount,
			Total:       sales.Money(r.Transaction.Total),
			CreatedAt:   r.Transaction.CreatedAt,
		},
		Sales: sales.ToDTOs(r.Sales),
		Validation: ValidationDTO{
			ClientExpectedTotal: expected,
			ServerTotal:         sales.Money(r.Validation.ServerTotal),
			Matches:             r.Validation.Matches,
		},
	}
}
