package enums

import (
	"fmt"
	"strings"
)

// SaleSortField is a sortable column of the sales listing.
type SaleSortField string

const (
	SaleSortCreatedAt  SaleSortField = "createdAt"
	SaleSortTotalPrice SaleSortField = "totalPrice"
	SaleSortQuantity   SaleSortField = "quantity"
)

var saleSortColumns = map[SaleSortField]string{
	SaleSortCreatedAt:  "created_at",
	SaleSortTotalPrice: "total_price",
	SaleSortQuantity:   "quantity",
}

// String implements fmt.Stringer.
func (s SaleSortField) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleSortField.
func (s SaleSortField) IsValid() bool {
	_, ok := saleSortColumns[s]
	return ok
}

// Column returns the sales table column backing the field.
func (s SaleSortField) Column() string {
	return saleSortColumns[s]
}

// ParseSaleSort parses "field" or "-field" into a field and a descending flag.
// An empty value sorts by createdAt descending.
func ParseSaleSort(value string) (SaleSortField, bool, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return SaleSortCreatedAt, true, nil
	}
	desc := false
	if strings.HasPrefix(raw, "-") {
		desc = true
		raw = strings.TrimPrefix(raw, "-")
	}
	field := SaleSortField(raw)
	if !field.IsValid() {
		return "", false, fmt.Errorf("invalid sort field %q", raw)
	}
	return field, desc, nil
}
