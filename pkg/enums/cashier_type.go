package enums

import "slices"

// CashierType records which kind of principal is credited with a sale.
type CashierType string

const (
	CashierTypeStaff CashierType = "staff"
	CashierTypeUser  CashierType = "user"
)

var cashierTypes = []CashierType{CashierTypeStaff, CashierTypeUser}

func (c CashierType) String() string { return string(c) }

func (c CashierType) IsValid() bool { return slices.Contains(cashierTypes, c) }

func ParseCashierType(value string) (CashierType, error) {
	return parse("cashier type", value, cashierTypes)
}
