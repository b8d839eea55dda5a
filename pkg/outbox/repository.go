package outbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
)

// ErrNoTransaction is returned by writes that must join the caller's transaction.
var ErrNoTransaction = errors.New("outbox: transaction required")

// errorTextLimit caps last_error and error_message, in bytes.
const errorTextLimit = 1024

// Repository owns outbox_events.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	if tx == nil {
		return ErrNoTransaction
	}
	return tx.WithContext(ctx).Create(&row).Error
}

var pendingOrder = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "created_at"}},
	{Column: clause.Column{Name: "id"}},
}}

// FetchPending locks the oldest unpublished rows with attempts left. Rows
// locked by another relay are skipped rather than waited on.
func (r *Repository) FetchPending(ctx context.Context, tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var batch []models.OutboxEvent
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Order(pendingOrder).
		Limit(limit).
		Find(&batch).Error
	return batch, err
}

func (r *Repository) MarkPublished(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return r.patch(ctx, tx, id, map[string]any{
		"published_at":  at.UTC(),
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    nil,
	})
}

func (r *Repository) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.patch(ctx, tx, id, map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    errorText(cause),
	})
}

// MarkTerminal sets attempt_count to the ceiling so FetchPending never
// returns the row again.
func (r *Repository) MarkTerminal(ctx context.Context, tx *gorm.DB, id uuid.UUID, cause error, attempts int) error {
	return r.patch(ctx, tx, id, map[string]any{
		"attempt_count": attempts,
		"last_error":    errorText(cause),
	})
}

func (r *Repository) patch(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if tx == nil {
		return ErrNoTransaction
	}
	return tx.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return clip(err.Error())
}

// clip cuts s to errorTextLimit bytes without splitting a rune.
func clip(s string) string {
	if len(s) <= errorTextLimit {
		return s
	}
	return strings.ToValidUTF8(s[:errorTextLimit], "")
}
