package transactions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/internal/sales"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
)

type SummaryDTO struct {
	ID            uuid.UUID         `json:"id"`
	Staff         *uuid.UUID        `json:"staff"`
	StaffName     *string           `json:"staffName"`
	CashierType   enums.CashierType `json:"cashierType"`
	CashierUser   *uuid.UUID        `json:"cashierUser"`
	CashierName   string            `json:"cashierName"`
	ItemsCount    int               `json:"itemsCount"`
	TotalQuantity int               `json:"totalQuantity"`
	Total         json.Number       `json:"total"`
	CreatedAt     time.Time         `json:"createdAt"`
	LastCreatedAt time.Time         `json:"lastCreatedAt"`
}

type SalesMetaDTO struct {
	Total      int64   `json:"total"`
	Limit      int     `json:"limit"`
	Page       *int    `json:"page"`
	NextCursor *string `json:"nextCursor"`
}

type SalesPageDTO struct {
	Data []sales.SaleDTO `json:"data"`
	Meta SalesMetaDTO    `json:"meta"`
}

type TransactionsMetaDTO struct {
	Total int64 `json:"total"`
	Limit int   `json:"limit"`
	Page  int   `json:"page"`
}

type TransactionsPageDTO struct {
	Data []SummaryDTO        `json:"data"`
	Meta TransactionsMetaDTO `json:"meta"`
}

type DetailDTO struct {
	Transaction SummaryDTO      `json:"transaction"`
	Sales       []sales.SaleDTO `json:"sales"`
}

type ReceiptLineDTO struct {
	SaleID    uuid.UUID   `json:"saleId"`
	ProductID uuid.UUID   `json:"productId"`
	Name      string      `json:"name"`
	SKU       *string     `json:"sku"`
	Barcode   *string     `json:"barcode"`
	UnitPrice json.Number `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
	Total     json.Number `json:"total"`
}

type ReceiptDTO struct {
	Transaction   SummaryDTO       `json:"transaction"`
	Items         []ReceiptLineDTO `json:"items"`
	MatchesStored bool             `json:"matchesStored"`
}

func ToSummaryDTO(s Summary) SummaryDTO {
	dto := SummaryDTO{
		ID:            s.ID,
		Staff:         sales.StaffID(s.Cashier),
		CashierType:   s.Cashier.Type(),
		CashierUser:   sales.UserID(s.Cashier),
		CashierName:   s.CashierName,
		ItemsCount:    s.ItemsCount,
		TotalQuantity: s.TotalQuantity,
		Total:         sales.Money(s.Total),
		CreatedAt:     s.CreatedAt,
		LastCreatedAt: s.LastCreatedAt,
	}
	if dto.Staff != nil {
		name := s.CashierName
		dto.StaffName = &name
	}
	return dto
}

func ToSalesPageDTO(p *SalesPage) SalesPageDTO {
	return SalesPageDTO{
		Data: sales.ToDTOs(p.Data),
		Meta: SalesMetaDTO{
			Total:      p.Meta.Total,
			Limit:      p.Meta.Limit,
			Page:       p.Meta.Page,
			NextCursor: p.Meta.NextCursor,
		},
	}
}

func ToTransactionsPageDTO(p *TransactionsPage) TransactionsPageDTO {
	data := make([]SummaryDTO, 0, len(p.Data))
	for _, s := range p.Data {
		data = append(data, ToSummaryDTO(s))
	}
	return TransactionsPageDTO{
		Data: data,
		Meta: TransactionsMetaDTO{Total: p.Meta.Total, Limit: p.Meta.Limit, Page: p.Meta.Page},
	}
}

func ToDetailDTO(d *Detail) DetailDTO {
	return DetailDTO{Transaction: ToSummaryDTO(d.Summary), Sales: sales.ToDTOs(d.Sales)}
}

func ToReceiptDTO(r *Receipt) ReceiptDTO {
	items := make([]ReceiptLineDTO, 0, len(r.Lines))
	for _, l := range r.Lines {
		items = append(items, ReceiptLineDTO{
			SaleID:    l.SaleID,
			ProductID: l.ProductID,
			Name:      l.Name,
			SKU:       l.SKU,
			Barcode:   l.Barcode,
			UnitPrice: sales.Money(l.UnitPrice),
			Quantity:  l.Quantity,
			Total:     sales.Money(l.Total),
		})
	}
	return ReceiptDTO{
		Transaction:   ToSummaryDTO(r.Header),
		Items:         items,
		MatchesStored: r.MatchesStored,
	}
}
