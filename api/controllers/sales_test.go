package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/api/middleware"
	"github.com/angelmondragon/storetrack-backend/internal/checkout"
	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/internal/sales"
	"github.com/angelmondragon/storetrack-backend/internal/transactions"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
)

var (
	ownerPrincipal = identity.Principal{
		Kind:    enums.PrincipalKindUser,
		ID:      uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001"),
		StoreID: uuid.MustParse("bbbbbbbb-0000-4000-8000-000000000001"),
		Role:    enums.MemberRoleOwner,
		Name:    "Olivia",
	}
	milkID = uuid.MustParse("cccccccc-0000-4000-8000-000000000001")
)

type fakeRecorder struct {
	single   checkout.SingleSaleRequest
	checkout checkout.CheckoutRequest
	err      error
}

func (f *fakeRecorder) RecordSingleSale(_ context.Context, p identity.Principal, req checkout.SingleSaleRequest) (*sales.Sale, error) {
	f.single = req
	if f.err != nil {
		return nil, f.err
	}
	sale := testSale(p, req.ProductID, req.Quantity)
	return &sale, nil
}

func (f *fakeRecorder) Checkout(_ context.Context, p identity.Principal, req checkout.CheckoutRequest) (*checkout.CheckoutResult, error) {
	f.checkout = req
	if f.err != nil {
		return nil, f.err
	}
	sale := testSale(p, req.Items[0].ProductID, req.Items[0].Quantity)
	matches := true
	return &checkout.CheckoutResult{
		Transaction: checkout.TransactionSummary{
			ID:         sale.TransactionID,
			Cashier:    sale.Cashier,
			ItemsCount: 1,
			Total:      sale.TotalPrice,
			CreatedAt:  sale.CreatedAt,
		},
		Sales: []sales.Sale{sale},
		Validation: checkout.TotalValidation{
			ClientExpectedTotal: req.ExpectedTotal,
			ServerTotal:         sale.TotalPrice,
			Matches:             &matches,
		},
	}, nil
}

func testSale(p identity.Principal, productID uuid.UUID, qty int) sales.Sale {
	sale, err := sales.NewSale(sales.LineInput{
		TransactionID: uuid.New(),
		StoreID:       p.StoreID,
		ProductID:     productID,
		ProductName:   "Milk",
		UnitPrice:     decimal.NewFromInt(500),
		Quantity:      qty,
		Cashier:       sales.AttributionFor(p),
		At:            time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		panic(err)
	}
	return sale
}

type fakeReader struct {
	listSales transactions.ListSalesInput
	listTx    transactions.ListTransactionsInput
	gotID     uuid.UUID
	err       error
}

func (f *fakeReader) ListSales(_ context.Context, _ identity.Principal, in transactions.ListSalesInput) (*transactions.SalesPage, error) {
	f.listSales = in
	if f.err != nil {
		return nil, f.err
	}
	return &transactions.SalesPage{Data: []sales.Sale{}, Meta: transactions.SalesMeta{Total: 0, Limit: 25}}, nil
}

func (f *fakeReader) ListTransactions(_ context.Context, _ identity.Principal, in transactions.ListTransactionsInput) (*transactions.TransactionsPage, error) {
	f.listTx = in
	return &transactions.TransactionsPage{Meta: transactions.TransactionsMeta{Total: 0, Limit: 25, Page: in.Page}}, f.err
}

func (f *fakeReader) GetTransaction(_ context.Context, _ identity.Principal, id uuid.UUID) (*transactions.Detail, error) {
	f.gotID = id
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
}

func (f *fakeReader) GetReceipt(_ context.Context, _ identity.Principal, id uuid.UUID) (*transactions.Receipt, error) {
	f.gotID = id
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
}

func authed(req *http.Request, p identity.Principal) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), p))
}

func TestRecordSaleCreatesSale(t *testing.T) {
	rec := &fakeRecorder{}
	body := `{"product":"` + milkID.String() + `","quantity":2}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body)), ownerPrincipal)
	resp := httptest.NewRecorder()

	RecordSale(rec, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if rec.single.ProductID != milkID || rec.single.Quantity != 2 || rec.single.StaffID != nil {
		t.Fatalf("unexpected request passed to engine %+v", rec.single)
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["cashierType"] != "user" || out["totalPrice"] != float64(1000) {
		t.Fatalf("unexpected sale body %v", out)
	}
}

func TestRecordSaleKeepsStaffFieldPresence(t *testing.T) {
	rec := &fakeRecorder{}
	body := `{"product":"` + milkID.String() + `","quantity":1,"staff":"not-a-uuid"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body)), ownerPrincipal)

	RecordSale(rec, nil)(httptest.NewRecorder(), req)

	if rec.single.StaffID == nil {
		t.Fatalf("staff field presence must reach the engine")
	}
}

func TestRecordSaleRejectsInvalidBody(t *testing.T) {
	rec := &fakeRecorder{}
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(`{"product":"x","quantity":0}`)), ownerPrincipal)
	resp := httptest.NewRecorder()

	RecordSale(rec, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if rec.single.ProductID != uuid.Nil {
		t.Fatalf("engine should not be called on invalid body")
	}
}

func TestRecordSaleRequiresPrincipal(t *testing.T) {
	resp := httptest.NewRecorder()
	RecordSale(&fakeRecorder{}, nil)(resp, httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(`{}`)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutMapsRequestAndResponse(t *testing.T) {
	rec := &fakeRecorder{}
	body := `{"items":[{"product":"` + milkID.String() + `","quantity":2}],"client":{"expectedTotal":1000}}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/sales/checkout", strings.NewReader(body)), ownerPrincipal)
	resp := httptest.NewRecorder()

	Checkout(rec, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if rec.checkout.ExpectedTotal == nil || !rec.checkout.ExpectedTotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected total not forwarded: %+v", rec.checkout.ExpectedTotal)
	}
	var out struct {
		Transaction map[string]any   `json:"transaction"`
		Sales       []map[string]any `json:"sales"`
		Validation  map[string]any   `json:"validation"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Transaction["itemsCount"] != float64(1) || len(out.Sales) != 1 {
		t.Fatalf("unexpected checkout body %s", resp.Body.String())
	}
	if out.Validation["matches"] != true || out.Validation["serverTotal"] != float64(1000) {
		t.Fatalf("unexpected validation %v", out.Validation)
	}
}

func TestCheckoutRejectsEmptyItems(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/sales/checkout", strings.NewReader(`{"items":[]}`)), ownerPrincipal)
	resp := httptest.NewRecorder()
	Checkout(&fakeRecorder{}, nil)(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutSurfacesStockError(t *testing.T) {
	rec := &fakeRecorder{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock for Milk").
		WithDetails(checkout.StockErrorDetails{ProductID: milkID, ProductName: "Milk"})}
	body := `{"items":[{"product":"` + milkID.String() + `","quantity":25}]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/sales/checkout", strings.NewReader(body)), ownerPrincipal)
	resp := httptest.NewRecorder()

	Checkout(rec, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"productId":"`+milkID.String()+`"`) {
		t.Fatalf("expected product details, got %s", resp.Body.String())
	}
}

func TestListSalesParsesQuery(t *testing.T) {
	reader := &fakeReader{}
	staffID := uuid.New()
	url := "/api/v1/sales?staff=" + staffID.String() + "&startDate=2024-01-02&endDate=2024-01-03&sort=-totalPrice&page=2&limit=10"
	resp := httptest.NewRecorder()

	ListSales(reader, nil)(resp, authed(httptest.NewRequest(http.MethodGet, url, nil), ownerPrincipal))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	in := reader.listSales
	if in.StaffID == nil || *in.StaffID != staffID {
		t.Fatalf("staff filter not forwarded")
	}
	if in.Sort != "-totalPrice" || in.Limit != 10 || in.Page == nil || *in.Page != 2 {
		t.Fatalf("unexpected paging input %+v", in)
	}
	if in.End == nil || in.End.Hour() != 23 {
		t.Fatalf("date-only end should be end of day, got %v", in.End)
	}
	if !strings.Contains(resp.Body.String(), `"nextCursor":null`) {
		t.Fatalf("expected explicit null cursor, got %s", resp.Body.String())
	}
}

func TestListSalesRejectsBadDate(t *testing.T) {
	reader := &fakeReader{}
	resp := httptest.NewRecorder()
	ListSales(reader, nil)(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/sales?startDate=soon", nil), ownerPrincipal))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListTransactionsDefaultsPage(t *testing.T) {
	reader := &fakeReader{}
	resp := httptest.NewRecorder()
	ListTransactions(reader, nil)(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/sales/transactions", nil), ownerPrincipal))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if reader.listTx.Page != 1 || reader.listTx.Limit != 0 {
		t.Fatalf("unexpected input %+v", reader.listTx)
	}
}

func TestGetTransactionInvalidIDIsNotFound(t *testing.T) {
	reader := &fakeReader{}
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/sales/transactions/nope", nil), ownerPrincipal)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("transactionId", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	resp := httptest.NewRecorder()

	GetTransaction(reader, nil)(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if reader.gotID != uuid.Nil {
		t.Fatalf("reader should not be called for an unparseable id")
	}
}

func TestListSalesRejectsPagePastBound(t *testing.T) {
	reader := &fakeReader{}
	resp := httptest.NewRecorder()
	url := "/api/v1/sales?page=9223372036854775807&limit=10"
	ListSales(reader, nil)(resp, authed(httptest.NewRequest(http.MethodGet, url, nil), ownerPrincipal))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if reader.listSales.Page != nil {
		t.Fatalf("reader should not be called, got %+v", reader.listSales)
	}
}

func TestCheckoutRejectsQuantityOverLineMaximum(t *testing.T) {
	rec := &fakeRecorder{}
	body := `{"items":[{"product":"` + milkID.String() + `","quantity":1000001}]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/sales/checkout", strings.NewReader(body)), ownerPrincipal)
	resp := httptest.NewRecorder()

	Checkout(rec, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(rec.checkout.Items) != 0 {
		t.Fatalf("engine should not be called, got %+v", rec.checkout)
	}
}
