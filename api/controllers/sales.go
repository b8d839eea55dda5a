package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/api/middleware"
	"github.com/angelmondragon/storetrack-backend/api/responses"
	"github.com/angelmondragon/storetrack-backend/api/validators"
	"github.com/angelmondragon/storetrack-backend/internal/checkout"
	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/internal/sales"
	"github.com/angelmondragon/storetrack-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
	"github.com/angelmondragon/storetrack-backend/pkg/pagination"
)

const maxCursorLength = 256

// SaleRecorder is the write side of the sales API.
type SaleRecorder interface {
	RecordSingleSale(ctx context.Context, principal identity.Principal, req checkout.SingleSaleRequest) (*sales.Sale, error)
	Checkout(ctx context.Context, principal identity.Principal, req checkout.CheckoutRequest) (*checkout.CheckoutResult, error)
}

// TransactionReader is the read side of the sales API.
type TransactionReader interface {
	ListSales(ctx context.Context, principal identity.Principal, in transactions.ListSalesInput) (*transactions.SalesPage, error)
	ListTransactions(ctx context.Context, principal identity.Principal, in transactions.ListTransactionsInput) (*transactions.TransactionsPage, error)
	GetTransaction(ctx context.Context, principal identity.Principal, transactionID uuid.UUID) (*transactions.Detail, error)
	GetReceipt(ctx context.Context, principal identity.Principal, transactionID uuid.UUID) (*transactions.Receipt, error)
}

type singleSaleRequest struct {
	Product  string  `json:"product" validate:"required,uuid"`
	Quantity int     `json:"quantity" validate:"required,gte=1,lte=1000000"`
	Staff    *string `json:"staff,omitempty"`
}

type checkoutItemRequest struct {
	Product  string `json:"product" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gte=1,lte=1000000"`
}

type checkoutClientRequest struct {
	ExpectedTotal *decimal.Decimal `json:"expectedTotal,omitempty"`
}

type checkoutRequest struct {
	Items  []checkoutItemRequest  `json:"items" validate:"required,min=1,dive"`
	Staff  *string                `json:"staff,omitempty"`
	Client *checkoutClientRequest `json:"client,omitempty"`
}

// RecordSale handles POST /api/v1/sales.
func RecordSale(svc SaleRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalOrError(w, r, logg)
		if !ok {
			return
		}

		var payload singleSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.RecordSingleSale(r.Context(), principal, checkout.SingleSaleRequest{
			ProductID: uuid.MustParse(payload.Product),
			Quantity:  payload.Quantity,
			StaffID:   staffField(payload.Staff),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sales.ToDTO(*sale))
	}
}

// Checkout handles POST /api/v1/sales/checkout.
func Checkout(svc SaleRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalOrError(w, r, logg)
		if !ok {
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req := checkout.CheckoutRequest{
			Items:   make([]checkout.Item, 0, len(payload.Items)),
			StaffID: staffField(payload.Staff),
		}
		for _, item := range payload.Items {
			req.Items = append(req.Items, checkout.Item{
				ProductID: uuid.MustParse(item.Product),
				Quantity:  item.Quantity,
			})
		}
		if payload.Client != nil {
			req.ExpectedTotal = payload.Client.ExpectedTotal
		}

		result, err := svc.Checkout(r.Context(), principal, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout.ToResponse(result))
	}
}

// ListSales handles GET /api/v1/sales.
func ListSales(svc TransactionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalOrError(w, r, logg)
		if !ok {
			return
		}

		scope, err := parseScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseOptionalQueryInt(r, "page")
		if err == nil && page != nil && (*page < 1 || *page > pagination.MaxPage) {
			err = pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
				WithDetails(map[string]any{"field": "page", "min": 1, "max": pagination.MaxPage})
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListSales(r.Context(), principal, transactions.ListSalesInput{
			Scope:  scope,
			Sort:   validators.ParseQueryString(r, "sort", 32),
			Page:   page,
			Limit:  limit,
			Cursor: validators.ParseQueryString(r, "cursor", maxCursorLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transactions.ToSalesPageDTO(result))
	}
}

// ListTransactions handles GET /api/v1/sales/transactions.
func ListTransactions(svc TransactionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalOrError(w, r, logg)
		if !ok {
			return
		}

		scope, err := parseScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, pagination.MaxPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListTransactions(r.Context(), principal, transactions.ListTransactionsInput{
			Scope: scope,
			Page:  page,
			Limit: limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transactions.ToTransactionsPageDTO(result))
	}
}

// GetTransaction handles GET /api/v1/sales/transactions/{transactionId}.
func GetTransaction(svc TransactionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalOrError(w, r, logg)
		if !ok {
			return
		}
		id, err := transactionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetTransaction(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactions.ToDetailDTO(detail))
	}
}

// GetReceipt handles GET /api/v1/sales/transactions/{transactionId}/receipt.
func GetReceipt(svc TransactionReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalOrError(w, r, logg)
		if !ok {
			return
		}
		id, err := transactionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.GetReceipt(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactions.ToReceiptDTO(receipt))
	}
}

func principalOrError(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (identity.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return identity.Principal{}, false
	}
	return principal, true
}

func parseScope(r *http.Request) (transactions.Scope, error) {
	staffID, err := validators.ParseQueryUUID(r, "staff")
	if err != nil {
		return transactions.Scope{}, err
	}
	start, err := validators.ParseQueryTime(r, "startDate", false)
	if err != nil {
		return transactions.Scope{}, err
	}
	end, err := validators.ParseQueryTime(r, "endDate", true)
	if err != nil {
		return transactions.Scope{}, err
	}
	return transactions.Scope{StaffID: staffID, Start: start, End: end}, nil
}

func transactionIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "transactionId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		// an unparseable id can never match a visible transaction
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found").
			WithDetails(map[string]any{"transactionId": raw})
	}
	return id, nil
}

// staffField keeps the presence of a client-sent staff value. Owners and
// managers are rejected for sending one at all; staff callers have it ignored.
func staffField(raw *string) *uuid.UUID {
	if raw == nil {
		return nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		id = uuid.Nil
	}
	return &id
}
