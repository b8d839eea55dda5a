package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/internal/repo"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
)

const groupKey = "COALESCE(transaction_id, id)"

// Repository is the sale ledger. It only appends rows; nothing updates or deletes them.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// InsertBatch writes every line of one transaction inside tx.
func (r *Repository) InsertBatch(ctx context.Context, tx *gorm.DB, lines []Sale) error {
	if len(lines) == 0 {
		return errors.New("no sale lines to insert")
	}
	rows := make([]models.Sale, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, line.toModel())
	}
	return r.Conn(ctx, tx).Create(&rows).Error
}

// Count returns the number of rows matching filter.
func (r *Repository) Count(ctx context.Context, filter Filter) (int64, error) {
	var total int64
	err := filter.apply(r.DB(ctx).Model(&models.Sale{})).Count(&total).Error
	return total, err
}

// List returns one page of sales. Callers ask for one extra row when they need
// to detect a following cursor page.
func (r *Repository) List(ctx context.Context, q SaleQuery) ([]Sale, error) {
	dir := direction(q.Desc)
	db := q.Filter.apply(r.DB(ctx).Model(&models.Sale{}))
	if q.Cursor != nil {
		op := ">"
		if q.Desc {
			op = "<"
		}
		at := q.Cursor.CreatedAt.UTC()
		db = db.Where("((created_at "+op+" ?) OR (created_at = ? AND id "+op+" ?))", at, at, q.Cursor.ID)
	}
	db = db.Order(q.Sort.Column() + " " + dir).Order("id " + dir)
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	var rows []models.Sale
	if err := db.Limit(q.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromModels(rows)
}

// CountTransactions returns the number of distinct transactions matching filter.
func (r *Repository) CountTransactions(ctx context.Context, filter Filter) (int64, error) {
	var total int64
	err := filter.apply(r.DB(ctx).Model(&models.Sale{})).
		Select("COUNT(DISTINCT " + groupKey + ")").
		Scan(&total).Error
	return total, err
}

// TransactionIDs returns one page of transaction ids, newest activity first.
func (r *Repository) TransactionIDs(ctx context.Context, filter Filter, offset, limit int) ([]uuid.UUID, error) {
	var keys []struct {
		GroupID uuid.UUID `gorm:"column:group_id"`
	}
	err := filter.apply(r.DB(ctx).Model(&models.Sale{})).
		Select(groupKey + " AS group_id").
		Group(groupKey).
		Order("MAX(created_at) DESC").
		Order("group_id DESC").
		Offset(offset).
		Limit(limit).
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.GroupID)
	}
	return ids, nil
}

// LinesForTransactions loads every visible line of the given transactions,
// oldest first. A row without a transaction id answers to its own id.
func (r *Repository) LinesForTransactions(ctx context.Context, filter Filter, ids []uuid.UUID) ([]Sale, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Sale
	err := filter.apply(r.DB(ctx).Model(&models.Sale{})).
		Where("(transaction_id IN ? OR (transaction_id IS NULL AND id IN ?))", ids, ids).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromModels(rows)
}

// FindByID returns one visible sale row, or nil when the caller cannot see it.
func (r *Repository) FindByID(ctx context.Context, filter Filter, id uuid.UUID) (*Sale, error) {
	var row models.Sale
	err := filter.apply(r.DB(ctx).Model(&models.Sale{})).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sale, err := FromModel(row)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func fromModels(rows []models.Sale) ([]Sale, error) {
	out := make([]Sale, 0, len(rows))
	for _, row := range rows {
		sale, err := FromModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, nil
}
