package transactions

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/internal/catalog"
	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/internal/sales"
	"github.com/angelmondragon/storetrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	reader  *Reader
	ledger  *sales.Repository
	storeID uuid.UUID
	owner   identity.Principal
	alice   identity.Principal
	bob     identity.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &models.Sale{}, &models.Product{}, &models.User{}, &models.Staff{})
	ledger := sales.NewRepository(db)
	reader, err := NewReader(Params{
		Ledger:   ledger,
		Names:    identity.NewRepository(db),
		Products: catalog.NewRepository(db),
	})
	require.NoError(t, err)
	storeID := uuid.New()
	f := &fixture{
		db:      db,
		reader:  reader,
		ledger:  ledger,
		storeID: storeID,
		owner:   identity.Principal{Kind: enums.PrincipalKindUser, ID: uuid.New(), StoreID: storeID, Role: enums.MemberRoleManager, Name: "Mia Manager"},
		alice:   identity.Principal{Kind: enums.PrincipalKindStaff, ID: uuid.New(), StoreID: storeID, Role: enums.MemberRoleStaff, Name: "Alice"},
		bob:     identity.Principal{Kind: enums.PrincipalKindStaff, ID: uuid.New(), StoreID: storeID, Role: enums.MemberRoleStaff, Name: "Bob"},
	}
	require.NoError(t, db.Create(&models.User{ID: f.owner.ID, StoreID: storeID, Name: "Mia Manager", Email: "mia@example.com", Role: enums.MemberRoleManager}).Error)
	return f
}

// record writes one transaction of lines with the given quantities.
func (f *fixture) record(t *testing.T, p identity.Principal, txID uuid.UUID, at time.Time, quantities ...int) []sales.Sale {
	t.Helper()
	lines := make([]sales.Sale, 0, len(quantities))
	for _, qty := range quantities {
		line, err := sales.NewSale(sales.LineInput{
			TransactionID: txID,
			StoreID:       f.storeID,
			ProductID:     uuid.New(),
			ProductName:   "Item",
			UnitPrice:     decimal.RequireFromString("2.50"),
			Quantity:      qty,
			Cashier:       sales.AttributionFor(p),
			At:            at,
		})
		require.NoError(t, err)
		lines = append(lines, line)
	}
	require.NoError(t, f.ledger.InsertBatch(context.Background(), f.db, lines))
	return lines
}

func TestStaffSeeOnlyTheirOwnSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.record(t, f.alice, uuid.New(), t0.Add(time.Duration(i)*time.Minute), 1)
	}
	f.record(t, f.bob, uuid.New(), t0, 1)
	f.record(t, f.bob, uuid.New(), t0, 2)
	f.record(t, f.owner, uuid.New(), t0, 1)

	page, err := f.reader.ListSales(ctx, f.alice, ListSalesInput{})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Meta.Total)
	require.Len(t, page.Data, 3)
	for _, s := range page.Data {
		require.Equal(t, sales.StaffCashier{ID: f.alice.ID, Name: "Alice"}, s.Cashier)
	}

	page, err = f.reader.ListSales(ctx, f.owner, ListSalesInput{})
	require.NoError(t, err)
	require.EqualValues(t, 6, page.Meta.Total)

	bobID := f.bob.ID
	page, err = f.reader.ListSales(ctx, f.owner, ListSalesInput{Scope: Scope{StaffID: &bobID}})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Meta.Total)

	_, err = f.reader.ListSales(ctx, f.alice, ListSalesInput{Scope: Scope{StaffID: &bobID}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	aliceID := f.alice.ID
	page, err = f.reader.ListSales(ctx, f.alice, ListSalesInput{Scope: Scope{StaffID: &aliceID}})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Meta.Total)
}

func TestListSalesCursorPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.record(t, f.owner, uuid.New(), t0.Add(time.Duration(i)*time.Minute), i+1)
	}

	page, err := f.reader.ListSales(ctx, f.owner, ListSalesInput{Limit: 2})
	require.NoError(t, err)
	require.Nil(t, page.Meta.Page)
	require.NotNil(t, page.Meta.NextCursor)
	require.Equal(t, []int{5, 4}, quantities(page.Data))

	page, err = f.reader.ListSales(ctx, f.owner, ListSalesInput{Limit: 2, Cursor: *page.Meta.NextCursor})
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, quantities(page.Data))
	require.NotNil(t, page.Meta.NextCursor)

	page, err = f.reader.ListSales(ctx, f.owner, ListSalesInput{Limit: 2, Cursor: *page.Meta.NextCursor})
	require.NoError(t, err)
	require.Equal(t, []int{1}, quantities(page.Data))
	require.Nil(t, page.Meta.NextCursor)
	require.EqualValues(t, 5, page.Meta.Total)
}

func TestListSalesOffsetPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.record(t, f.owner, uuid.New(), t0, 4, 1, 3, 2)

	pageNum := 2
	page, err := f.reader.ListSales(ctx, f.owner, ListSalesInput{Sort: "-quantity", Limit: 3, Page: &pageNum})
	require.NoError(t, err)
	require.Equal(t, []int{1}, quantities(page.Data))
	require.NotNil(t, page.Meta.Page)
	require.Equal(t, 2, *page.Meta.Page)
	require.Nil(t, page.Meta.NextCursor)

	page, err = f.reader.ListSales(ctx, f.owner, ListSalesInput{Sort: "quantity"})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, quantities(page.Data))
	require.Equal(t, 1, *page.Meta.Page)
}

func TestListSalesRejectsBadPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.record(t, f.owner, uuid.New(), t0, 1, 1)

	first, err := f.reader.ListSales(ctx, f.owner, ListSalesInput{Limit: 1})
	require.NoError(t, err)
	require.NotNil(t, first.Meta.NextCursor)
	cursor := *first.Meta.NextCursor
	one := 1
	huge := math.MaxInt

	cases := map[string]ListSalesInput{
		"cursor with quantity sort": {Sort: "quantity", Cursor: cursor},
		"cursor with page":          {Cursor: cursor, Page: &one},
		"garbage cursor":            {Cursor: "%%%"},
		"limit too high":            {Limit: 201},
		"negative limit":            {Limit: -1},
		"unknown sort":              {Sort: "price"},
		"page past the bound":       {Page: &huge},
	}
	for name, in := range cases {
		_, err := f.reader.ListSales(ctx, f.owner, in)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: got %v", name, err)
	}

	start := t0.Add(time.Hour)
	end := t0
	_, err = f.reader.ListSales(ctx, f.owner, ListSalesInput{Scope: Scope{Start: &start, End: &end}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListTransactionsGroupsRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := uuid.New()
	f.record(t, f.alice, older, t0, 1, 2)
	newer := uuid.New()
	f.record(t, f.owner, newer, t0.Add(time.Hour), 3)
	legacy := f.record(t, f.bob, uuid.Nil, t0.Add(30*time.Minute), 4)[0]

	page, err := f.reader.ListTransactions(ctx, f.owner, ListTransactionsInput{})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Meta.Total)
	require.Equal(t, 1, page.Meta.Page)
	require.Len(t, page.Data, 3)

	require.Equal(t, newer, page.Data[0].ID)
	require.Equal(t, legacy.ID, page.Data[1].ID)
	require.Equal(t, 1, page.Data[1].ItemsCount)
	require.Equal(t, older, page.Data[2].ID)

	grouped := page.Data[2]
	require.Equal(t, 2, grouped.ItemsCount)
	require.Equal(t, 3, grouped.TotalQuantity)
	require.True(t, grouped.Total.Equal(decimal.RequireFromString("7.5")))
	require.Equal(t, "Alice", grouped.CashierName)
	require.True(t, grouped.CreatedAt.Equal(t0))

	dto := ToSummaryDTO(grouped)
	require.NotNil(t, dto.StaffName)
	require.Nil(t, dto.CashierUser)

	page, err = f.reader.ListTransactions(ctx, f.alice, ListTransactionsInput{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Meta.Total)

	page, err = f.reader.ListTransactions(ctx, f.owner, ListTransactionsInput{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Equal(t, older, page.Data[0].ID)
}

func TestCashierNameFallsBackToIdentityStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unnamed := f.owner
	unnamed.Name = ""
	txID := uuid.New()
	f.record(t, unnamed, txID, t0, 1)

	detail, err := f.reader.GetTransaction(ctx, f.owner, txID)
	require.NoError(t, err)
	require.Equal(t, "Mia Manager", detail.Summary.CashierName)
}

func TestGetTransactionByLegacySaleID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	legacy := f.record(t, f.alice, uuid.Nil, t0, 2)[0]

	detail, err := f.reader.GetTransaction(ctx, f.owner, legacy.ID)
	require.NoError(t, err)
	require.Equal(t, legacy.ID, detail.Summary.ID)
	require.Len(t, detail.Sales, 1)
	require.Equal(t, legacy.ID, detail.Sales[0].TransactionID)
}

func TestGetTransactionBySaleIDOfGroupedLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	txID := uuid.New()
	lines := f.record(t, f.alice, txID, t0, 2, 3)

	detail, err := f.reader.GetTransaction(ctx, f.owner, lines[1].ID)
	require.NoError(t, err)
	require.Equal(t, lines[1].ID, detail.Summary.ID)
	require.Len(t, detail.Sales, 1)
	require.Equal(t, lines[1].ID, detail.Sales[0].ID)
	require.Equal(t, 3, detail.Summary.TotalQuantity)
	require.True(t, detail.Summary.Total.Equal(decimal.RequireFromString("7.50")))

	receipt, err := f.reader.GetReceipt(ctx, f.alice, lines[1].ID)
	require.NoError(t, err)
	require.Len(t, receipt.Lines, 1)
	require.Equal(t, lines[1].ID, receipt.Lines[0].SaleID)
	require.Equal(t, 1, receipt.Header.ItemsCount)
	require.True(t, receipt.MatchesStored)

	_, err = f.reader.GetTransaction(ctx, f.bob, lines[1].ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	full, err := f.reader.GetTransaction(ctx, f.owner, txID)
	require.NoError(t, err)
	require.Len(t, full.Sales, 2)
}

func TestGetTransactionRespectsScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	txID := uuid.New()
	f.record(t, f.alice, txID, t0, 1)

	_, err := f.reader.GetTransaction(ctx, f.bob, txID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.reader.GetTransaction(ctx, f.owner, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	detail, err := f.reader.GetTransaction(ctx, f.alice, txID)
	require.NoError(t, err)
	require.Len(t, detail.Sales, 1)
}

func TestGetReceiptFlattensLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sku := "MILK-1"
	barcode := "0001"
	product := models.Product{
		ID:       uuid.New(),
		StoreID:  f.storeID,
		Name:     "Milk (renamed)",
		SKU:      &sku,
		Barcode:  &barcode,
		Price:    decimal.NewNullDecimal(decimal.NewFromInt(5)),
		Quantity: 10,
	}
	require.NoError(t, f.db.Create(&product).Error)

	txID := uuid.New()
	line, err := sales.NewSale(sales.LineInput{
		TransactionID: txID,
		StoreID:       f.storeID,
		ProductID:     product.ID,
		ProductName:   "Milk",
		UnitPrice:     decimal.NewFromInt(5),
		Quantity:      2,
		Cashier:       sales.AttributionFor(f.owner),
		At:            t0,
	})
	require.NoError(t, err)
	f.record(t, f.owner, uuid.Nil, t0, 1)
	require.NoError(t, f.ledger.InsertBatch(ctx, f.db, []sales.Sale{line}))

	receipt, err := f.reader.GetReceipt(ctx, f.owner, txID)
	require.NoError(t, err)
	require.Len(t, receipt.Lines, 1)
	require.Equal(t, "Milk", receipt.Lines[0].Name)
	require.Equal(t, &sku, receipt.Lines[0].SKU)
	require.Equal(t, "0001", *receipt.Lines[0].Barcode)
	require.True(t, receipt.Header.Total.Equal(decimal.NewFromInt(10)))
	require.Equal(t, 2, receipt.Header.TotalQuantity)
	require.True(t, receipt.MatchesStored)

	dto := ToReceiptDTO(receipt)
	require.Equal(t, "10", dto.Transaction.Total.String())
	require.Equal(t, "5", dto.Items[0].UnitPrice.String())
}

func quantities(list []sales.Sale) []int {
	out := make([]int, 0, len(list))
	for _, s := range list {
		out = append(out, s.Quantity)
	}
	return out
}
