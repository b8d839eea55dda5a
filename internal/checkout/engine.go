package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/internal/sales"
	dbpkg "github.com/angelmondragon/storetrack-backend/pkg/db"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
	"github.com/angelmondragon/storetrack-backend/pkg/metrics"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox"
)

const (
	opSingleSale = "single_sale"
	opCheckout   = "checkout"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productStore interface {
	LockForSale(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID) (*models.Product, error)
	Refetch(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID) (*models.Product, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID, qty int, now time.Time) (bool, error)
}

type saleWriter interface {
	InsertBatch(ctx context.Context, tx *gorm.DB, lines []sales.Sale) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.Event) error
}

// Params wires the engine's collaborators.
type Params struct {
	Tx       txRunner
	Catalog  productStore
	Ledger   saleWriter
	Events   eventEmitter
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	MaxLines int
	Now      func() time.Time
}

// Engine records sales. Every call runs as a single unit of work: stock
// reservations, sale rows and the outbox event commit together or not at all.
type Engine struct {
	tx       txRunner
	catalog  productStore
	ledger   saleWriter
	events   eventEmitter
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	maxLines int
	now      func() time.Time
}

func NewEngine(p Params) (*Engine, error) {
	if p.Tx == nil {
		return nil, errors.New("tx runner required")
	}
	if p.Catalog == nil {
		return nil, errors.New("product store required")
	}
	if p.Ledger == nil {
		return nil, errors.New("sale writer required")
	}
	if p.Events == nil {
		return nil, errors.New("event emitter required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		tx:       p.Tx,
		catalog:  p.Catalog,
		ledger:   p.Ledger,
		events:   p.Events,
		metrics:  p.Metrics,
		logg:     p.Logger,
		maxLines: p.MaxLines,
		now:      now,
	}, nil
}

// RecordSingleSale sells one product line under a fresh transaction id.
func (e *Engine) RecordSingleSale(ctx context.Context, principal identity.Principal, req SingleSaleRequest) (*sales.Sale, error) {
	started := e.now()
	result, err := e.record(ctx, opSingleSale, principal, req.StaffID, []Item{{ProductID: req.ProductID, Quantity: req.Quantity}}, nil)
	e.observe(opSingleSale, started, result, err)
	if err != nil {
		return nil, err
	}
	sale := result.Sales[0]
	return &sale, nil
}

// Checkout sells every requested line as one transaction. Duplicate products
// are merged first; the first failing line aborts the whole checkout.
func (e *Engine) Checkout(ctx context.Context, principal identity.Principal, req CheckoutRequest) (*CheckoutResult, error) {
	started := e.now()
	result, err := e.record(ctx, opCheckout, principal, req.StaffID, req.Items, req.ExpectedTotal)
	e.observe(opCheckout, started, result, err)
	return result, err
}

func (e *Engine) record(ctx context.Context, op string, principal identity.Principal, staffField *uuid.UUID, items []Item, expected *decimal.Decimal) (*CheckoutResult, error) {
	if err := principal.Validate(); err != nil {
		return nil, err
	}
	cashier, err := resolveCashier(principal, staffField)
	if err != nil {
		return nil, err
	}
	if err := e.validateItems(items); err != nil {
		return nil, err
	}
	lines := mergeLines(items)
	if err := checkMerged(lines); err != nil {
		return nil, err
	}

	txID := uuid.New()
	at := e.now().UTC().Truncate(time.Microsecond)
	var recorded []sales.Sale
	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		recorded = make([]sales.Sale, 0, len(lines))
		for _, l := range lines {
			sale, err := e.reserve(ctx, tx, principal.StoreID, l, txID, cashier, at)
			if err != nil {
				return err
			}
			recorded = append(recorded, sale)
		}
		if err := e.ledger.InsertBatch(ctx, tx, recorded); err != nil {
			return err
		}
		return e.events.Emit(ctx, tx, saleRecordedEvent(principal, txID, cashier, recorded, at))
	})
	if err != nil {
		return nil, classifyStorageError(err)
	}

	total := decimal.Zero
	for _, s := range recorded {
		total = total.Add(s.TotalPrice)
	}
	result := &CheckoutResult{
		Transaction: TransactionSummary{
			ID:         txID,
			Cashier:    cashier,
			ItemsCount: len(recorded),
			Total:      total,
			CreatedAt:  at,
		},
		Sales:      recorded,
		Validation: compareTotals(expected, total),
	}
	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"operation":      op,
			"transaction_id": txID.String(),
			"items_count":    len(recorded),
			"total":          total.String(),
		})
		e.logg.Info(logCtx, "checkout.completed")
	}
	return result, nil
}

// reserve prices the line and takes its stock. Price is checked before the
// decrement so an unpriceable product never loses stock.
func (e *Engine) reserve(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, l line, txID uuid.UUID, cashier sales.CashierAttribution, at time.Time) (sales.Sale, error) {
	product, err := e.catalog.LockForSale(ctx, tx, storeID, l.productID)
	if err != nil {
		return sales.Sale{}, err
	}
	if product == nil {
		return sales.Sale{}, productNotFound(l.productID)
	}
	if !product.Price.Valid || product.Price.Decimal.IsNegative() {
		return sales.Sale{}, invalidPricing(product)
	}
	if product.Quantity < l.quantity {
		return sales.Sale{}, insufficientStock(product, l.quantity)
	}

	ok, err := e.catalog.DecrementStock(ctx, tx, storeID, l.productID, l.quantity, at)
	if err != nil {
		return sales.Sale{}, err
	}
	if !ok {
		current, err := e.catalog.Refetch(ctx, tx, storeID, l.productID)
		if err != nil {
			return sales.Sale{}, err
		}
		if current == nil {
			return sales.Sale{}, productNotFound(l.productID)
		}
		return sales.Sale{}, insufficientStock(current, l.quantity)
	}

	return sales.NewSale(sales.LineInput{
		TransactionID: txID,
		StoreID:       storeID,
		ProductID:     product.ID,
		ProductName:   product.Name,
		UnitPrice:     product.Price.Decimal,
		UnitCostPrice: product.CostPrice,
		Quantity:      l.quantity,
		Cashier:       cashier,
		At:            at,
	})
}

func (e *Engine) validateItems(items []Item) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "items must contain at least one line")
	}
	if e.maxLines > 0 && len(items) > e.maxLines {
		return pkgerrors.New(pkgerrors.CodeValidation, "too many checkout lines").
			WithDetails(map[string]any{"max": e.maxLines, "received": len(items)})
	}
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
				WithDetails(map[string]any{"line": i})
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"line": i, "productId": item.ProductID})
		}
		if item.Quantity > MaxLineQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line maximum").
				WithDetails(map[string]any{"line": i, "productId": item.ProductID, "max": MaxLineQuantity})
		}
	}
	return nil
}

// checkMerged re-applies the per-line bound once duplicate products are summed.
func checkMerged(lines []line) error {
	for _, l := range lines {
		if l.quantity < 1 || l.quantity > MaxLineQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "combined quantity for product exceeds the per-line maximum").
				WithDetails(map[string]any{"productId": l.productID, "max": MaxLineQuantity})
		}
	}
	return nil
}

func resolveCashier(p identity.Principal, staffField *uuid.UUID) (sales.CashierAttribution, error) {
	if !p.IsStaff() && staffField != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff cannot be set when an owner or manager records a sale")
	}
	return sales.AttributionFor(p), nil
}

// classifyStorageError keeps business errors as they are and marks
// contention or connectivity failures as retryable.
func classifyStorageError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if dbpkg.IsTransient(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTransientStorage, err, "sale transaction could not commit")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record sale")
}

func (e *Engine) observe(op string, started time.Time, result *CheckoutResult, err error) {
	elapsed := e.now().Sub(started)
	switch {
	case err == nil:
		e.metrics.ObserveDuration(op, metrics.OutcomeSuccess, elapsed)
		e.metrics.AddLines(op, len(result.Sales))
	case isBusinessRejection(err):
		e.metrics.ObserveDuration(op, metrics.OutcomeRejected, elapsed)
		e.metrics.IncRejection(op, string(pkgerrors.As(err).Code()))
	default:
		e.metrics.ObserveDuration(op, metrics.OutcomeError, elapsed)
	}
}

func isBusinessRejection(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeInsufficientStock,
		pkgerrors.CodeInvalidPricing,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeForbidden:
		return true
	}
	return false
}
