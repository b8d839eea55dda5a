package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/internal/sales"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox/payloads"
)

func saleRecordedEvent(p identity.Principal, txID uuid.UUID, cashier sales.CashierAttribution, recorded []sales.Sale, at time.Time) outbox.Event {
	total := decimal.Zero
	quantity := 0
	lines := make([]payloads.SaleLine, 0, len(recorded))
	for _, s := range recorded {
		total = total.Add(s.TotalPrice)
		quantity += s.Quantity
		lines = append(lines, payloads.SaleLine{
			SaleID:        s.ID,
			ProductID:     s.ProductID,
			ProductName:   s.ProductName,
			Quantity:      s.Quantity,
			UnitPrice:     sales.Money(s.UnitPrice),
			UnitCostPrice: sales.NullMoney(s.UnitCostPrice),
			TotalPrice:    sales.Money(s.TotalPrice),
		})
	}
	return outbox.Event{
		Type:      enums.EventSaleTransactionRecorded,
		Aggregate: enums.AggregateSaleTransaction,
		SubjectID: txID,
		Actor: &outbox.Actor{
			PrincipalID:   p.ID,
			PrincipalKind: p.Kind,
			StoreID:       p.StoreID,
			Role:          p.Role.String(),
		},
		Data: payloads.SaleTransactionRecordedEvent{
			TransactionID: txID,
			StoreID:       p.StoreID,
			CashierType:   cashier.Type(),
			CashierID:     cashier.PrincipalID(),
			CashierName:   cashier.DisplayName(),
			ItemsCount:    len(recorded),
			TotalQuantity: quantity,
			Total:         sales.Money(total),
			RecordedAt:    at,
			Lines:         lines,
		},
		Version: 1,
		At:      at,
	}
}
