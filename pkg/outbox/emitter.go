package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
)

// Event is a domain fact staged next to the write that caused it.
type Event struct {
	Type      enums.OutboxEventType
	Aggregate enums.OutboxAggregateType
	SubjectID uuid.UUID
	Actor     *Actor
	Data      any
	// Version defaults to 1.
	Version int
	// At defaults to the emitter clock.
	At time.Time
}

func (ev Event) check() error {
	var errs error
	if !ev.Type.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("unknown event type %q", ev.Type))
	}
	if !ev.Aggregate.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("unknown aggregate type %q", ev.Aggregate))
	}
	if ev.SubjectID == uuid.Nil {
		errs = multierr.Append(errs, fmt.Errorf("subject id required"))
	}
	return errs
}

// Seal validates ev and turns it into an outbox row. The envelope event id
// is the row id so subscribers can dedupe on either.
func Seal(ev Event, now time.Time) (models.OutboxEvent, error) {
	if err := ev.check(); err != nil {
		return models.OutboxEvent{}, err
	}
	at := ev.At
	if at.IsZero() {
		at = now
	}
	version := max(ev.Version, 1)

	body, err := json.Marshal(ev.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode %s data: %w", ev.Type, err)
	}
	id := uuid.New()
	payload, err := json.Marshal(Envelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: at.UTC(),
		Actor:      ev.Actor,
		Data:       body,
	})
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode envelope: %w", err)
	}

	return models.OutboxEvent{
		ID:            id,
		EventType:     ev.Type,
		AggregateType: ev.Aggregate,
		AggregateID:   ev.SubjectID,
		Payload:       payload,
		CreatedAt:     at.UTC(),
	}, nil
}

// Emitter stages events in outbox_events for the relay to publish.
type Emitter struct {
	rows *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewEmitter(rows *Repository, logg *logger.Logger) *Emitter {
	return &Emitter{rows: rows, logg: logg, now: time.Now}
}

// Emit writes ev through tx, so it only becomes visible if the caller's
// transaction commits.
func (e *Emitter) Emit(ctx context.Context, tx *gorm.DB, ev Event) error {
	if tx == nil {
		return ErrNoTransaction
	}
	row, err := Seal(ev, e.now())
	if err != nil {
		return err
	}
	if err := e.rows.Insert(ctx, tx, row); err != nil {
		return fmt.Errorf("stage %s: %w", ev.Type, err)
	}
	if e.logg != nil {
		e.logg.Debug(e.logg.WithFields(ctx, map[string]any{
			"event_id":     row.ID.String(),
			"event_type":   ev.Type,
			"aggregate_id": ev.SubjectID.String(),
		}), "outbox.event_staged")
	}
	return nil
}
