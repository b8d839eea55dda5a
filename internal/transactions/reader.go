package transactions

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storetrack-backend/internal/identity"
	"github.com/angelmondragon/storetrack-backend/internal/sales"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
	"github.com/angelmondragon/storetrack-backend/pkg/pagination"
)

type ledger interface {
	Count(ctx context.Context, filter sales.Filter) (int64, error)
	List(ctx context.Context, q sales.SaleQuery) ([]sales.Sale, error)
	CountTransactions(ctx context.Context, filter sales.Filter) (int64, error)
	TransactionIDs(ctx context.Context, filter sales.Filter, offset, limit int) ([]uuid.UUID, error)
	LinesForTransactions(ctx context.Context, filter sales.Filter, ids []uuid.UUID) ([]sales.Sale, error)
	FindByID(ctx context.Context, filter sales.Filter, id uuid.UUID) (*sales.Sale, error)
}

type nameDirectory interface {
	DisplayNames(ctx context.Context, storeID uuid.UUID, userIDs, staffIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

type productDirectory interface {
	FindByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type Params struct {
	Ledger       ledger
	Names        nameDirectory
	Products     productDirectory
	DefaultLimit int
	MaxLimit     int
}

// Reader serves read-only views over the sale ledger, scoped to the caller.
type Reader struct {
	ledger       ledger
	names        nameDirectory
	products     productDirectory
	defaultLimit int
	maxLimit     int
}

func NewReader(p Params) (*Reader, error) {
	if p.Ledger == nil {
		return nil, errors.New("sale ledger required")
	}
	if p.Names == nil {
		return nil, errors.New("name directory required")
	}
	if p.Products == nil {
		return nil, errors.New("product directory required")
	}
	maxLimit := p.MaxLimit
	if maxLimit <= 0 || maxLimit > pagination.MaxLimit {
		maxLimit = pagination.MaxLimit
	}
	def := p.DefaultLimit
	if def <= 0 || def > maxLimit {
		def = pagination.DefaultLimit
	}
	return &Reader{
		ledger:       p.Ledger,
		names:        p.Names,
		products:     p.Products,
		defaultLimit: def,
		maxLimit:     maxLimit,
	}, nil
}

// ListSales returns flat sale lines. A page selects offset pagination; without
// one, createdAt sorts page by cursor.
func (r *Reader) ListSales(ctx context.Context, principal identity.Principal, in ListSalesInput) (*SalesPage, error) {
	filter, err := r.filter(principal, in.Scope)
	if err != nil {
		return nil, err
	}
	field, desc, err := enums.ParseSaleSort(in.Sort)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "sort must be createdAt, totalPrice or quantity, optionally prefixed with -")
	}
	limit, err := r.limit(in.Limit)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(in.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil && field != enums.SaleSortCreatedAt {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor pagination requires sorting by createdAt")
	}
	if cursor != nil && in.Page != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "page and cursor cannot be combined")
	}
	if in.Page != nil && (*in.Page < 1 || *in.Page > pagination.MaxPage) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "page out of range").
			WithDetails(map[string]any{"min": 1, "max": pagination.MaxPage})
	}

	total, err := r.ledger.Count(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sales")
	}

	q := sales.SaleQuery{Filter: filter, Sort: field, Desc: desc, Limit: limit}
	useCursor := in.Page == nil && field == enums.SaleSortCreatedAt
	meta := SalesMeta{Total: total, Limit: limit}
	if useCursor {
		q.Cursor = cursor
		q.Limit = pagination.Probe(limit)
	} else {
		page := 1
		if in.Page != nil {
			page = *in.Page
		}
		q.Offset = pagination.Offset(page, limit)
		meta.Page = &page
	}

	rows, err := r.ledger.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	if useCursor {
		rows, meta.NextCursor = pagination.NextPage(rows, limit, func(s sales.Sale) pagination.Cursor {
			return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
		})
	}
	return &SalesPage{Data: rows, Meta: meta}, nil
}

// ListTransactions returns transaction summaries, most recent activity first.
func (r *Reader) ListTransactions(ctx context.Context, principal identity.Principal, in ListTransactionsInput) (*TransactionsPage, error) {
	filter, err := r.filter(principal, in.Scope)
	if err != nil {
		return nil, err
	}
	limit, err := r.limit(in.Limit)
	if err != nil {
		return nil, err
	}
	page := in.Page
	if page == 0 {
		page = 1
	}
	if page < 1 || page > pagination.MaxPage {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "page out of range").
			WithDetails(map[string]any{"min": 1, "max": pagination.MaxPage})
	}

	total, err := r.ledger.CountTransactions(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count transactions")
	}
	ids, err := r.ledger.TransactionIDs(ctx, filter, pagination.Offset(page, limit), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	lines, err := r.ledger.LinesForTransactions(ctx, filter, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction lines")
	}

	grouped := make(map[uuid.UUID][]sales.Sale, len(ids))
	for _, line := range lines {
		grouped[line.GroupID()] = append(grouped[line.GroupID()], line)
	}
	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		if rows := grouped[id]; len(rows) > 0 {
			summaries = append(summaries, summarize(id, rows))
		}
	}
	if err := r.resolveNames(ctx, principal.StoreID, summaries); err != nil {
		return nil, err
	}
	return &TransactionsPage{
		Data: summaries,
		Meta: TransactionsMeta{Total: total, Limit: limit, Page: page},
	}, nil
}

// GetTransaction returns a transaction and its lines, oldest first. An id that
// names no transaction is tried as a sale id, and that row alone is returned
// as a one-line transaction.
func (r *Reader) GetTransaction(ctx context.Context, principal identity.Principal, transactionID uuid.UUID) (*Detail, error) {
	filter, err := r.filter(principal, Scope{})
	if err != nil {
		return nil, err
	}
	lines, err := r.ledger.LinesForTransactions(ctx, filter, []uuid.UUID{transactionID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if len(lines) == 0 {
		sale, err := r.ledger.FindByID(ctx, filter, transactionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if sale == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found").
				WithDetails(map[string]any{"transactionId": transactionID})
		}
		lines = []sales.Sale{*sale}
	}
	summaries := []Summary{summarize(transactionID, lines)}
	if err := r.resolveNames(ctx, principal.StoreID, summaries); err != nil {
		return nil, err
	}
	return &Detail{Summary: summaries[0], Sales: lines}, nil
}

// GetReceipt flattens a transaction for printing.
func (r *Reader) GetReceipt(ctx context.Context, principal identity.Principal, transactionID uuid.UUID) (*Receipt, error) {
	detail, err := r.GetTransaction(ctx, principal, transactionID)
	if err != nil {
		return nil, err
	}
	productIDs := make([]uuid.UUID, 0, len(detail.Sales))
	for _, s := range detail.Sales {
		productIDs = append(productIDs, s.ProductID)
	}
	products, err := r.products.FindByIDs(ctx, principal.StoreID, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt products")
	}

	header := detail.Summary
	header.Total = decimal.Zero
	header.TotalQuantity = 0
	storedTotal := decimal.Zero
	lines := make([]ReceiptLine, 0, len(detail.Sales))
	for _, s := range detail.Sales {
		line := ReceiptLine{
			SaleID:    s.ID,
			ProductID: s.ProductID,
			Name:      s.ProductName,
			UnitPrice: s.UnitPrice,
			Quantity:  s.Quantity,
			Total:     s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity))),
		}
		if product, ok := products[s.ProductID]; ok {
			line.SKU = product.SKU
			line.Barcode = product.Barcode
			if line.Name == "" {
				line.Name = product.Name
			}
		}
		header.Total = header.Total.Add(line.Total)
		header.TotalQuantity += line.Quantity
		storedTotal = storedTotal.Add(s.TotalPrice)
		lines = append(lines, line)
	}
	header.ItemsCount = len(lines)
	return &Receipt{
		Header:        header,
		Lines:         lines,
		MatchesStored: header.Total.Equal(storedTotal),
	}, nil
}

// filter applies the visibility rule: staff only ever see their own sales,
// owners and managers see the store and may narrow to one staff member.
func (r *Reader) filter(p identity.Principal, scope Scope) (sales.Filter, error) {
	if err := p.Validate(); err != nil {
		return sales.Filter{}, err
	}
	if scope.Start != nil && scope.End != nil && scope.Start.After(*scope.End) {
		return sales.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "startDate must not be after endDate")
	}
	f := sales.Filter{StoreID: p.StoreID, Start: scope.Start, End: scope.End}
	if p.IsStaff() {
		if scope.StaffID != nil && *scope.StaffID != p.ID {
			return sales.Filter{}, pkgerrors.New(pkgerrors.CodeForbidden, "staff can only view their own sales")
		}
		own := p.ID
		f.StaffID = &own
		return f, nil
	}
	f.StaffID = scope.StaffID
	return f, nil
}

func (r *Reader) limit(requested int) (int, error) {
	if requested == 0 {
		return r.defaultLimit, nil
	}
	if requested < 1 || requested > r.maxLimit {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit out of range").
			WithDetails(map[string]any{"min": 1, "max": r.maxLimit})
	}
	return requested, nil
}

func summarize(id uuid.UUID, rows []sales.Sale) Summary {
	s := Summary{
		ID:            id,
		Cashier:       rows[0].Cashier,
		CashierName:   rows[0].Cashier.DisplayName(),
		ItemsCount:    len(rows),
		Total:         decimal.Zero,
		CreatedAt:     rows[0].CreatedAt,
		LastCreatedAt: rows[0].CreatedAt,
	}
	for _, row := range rows {
		s.TotalQuantity += row.Quantity
		s.Total = s.Total.Add(row.TotalPrice)
		if row.CreatedAt.Before(s.CreatedAt) {
			s.CreatedAt = row.CreatedAt
		}
		if row.CreatedAt.After(s.LastCreatedAt) {
			s.LastCreatedAt = row.CreatedAt
		}
	}
	return s
}

// resolveNames fills cashier names missing from the snapshot with the current
// account name.
func (r *Reader) resolveNames(ctx context.Context, storeID uuid.UUID, summaries []Summary) error {
	var userIDs, staffIDs []uuid.UUID
	for _, s := range summaries {
		if s.CashierName != "" {
			continue
		}
		switch c := s.Cashier.(type) {
		case sales.StaffCashier:
			staffIDs = append(staffIDs, c.ID)
		case sales.UserCashier:
			userIDs = append(userIDs, c.ID)
		}
	}
	if len(userIDs) == 0 && len(staffIDs) == 0 {
		return nil
	}
	names, err := r.names.DisplayNames(ctx, storeID, dedupe(userIDs), dedupe(staffIDs))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cashier names")
	}
	for i := range summaries {
		if summaries[i].CashierName == "" {
			summaries[i].CashierName = names[summaries[i].Cashier.PrincipalID()]
		}
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) < 2 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
