package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox/registry"
)

type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictDeadLetter
)

// delivery is the outcome of one publish attempt, decided before any row
// is touched.
type delivery struct {
	event   models.OutboxEvent
	verdict verdict
	reason  enums.OutboxDLQErrorReason
	err     error
	topic   string
}

// drain handles one batch and returns how many rows it settled. Publish
// failures are settled on the row; only bookkeeping errors abort the batch
// and roll back its transaction.
func (r *Relay) drain(ctx context.Context) (int, error) {
	started := r.now()
	defer func() { r.metrics.ObserveBatch(r.now().Sub(started)) }()

	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchPending(ctx, tx, r.opts.batchSize, r.opts.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch pending: %w", err)
		}
		for _, row := range rows {
			if err := r.settle(ctx, tx, r.deliver(ctx, row)); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	d := delivery{event: event, verdict: verdictPublished}

	resolved, err := r.events.Resolve(event)
	if err == nil {
		d.topic = resolved.Route.Topic
		err = r.send(ctx, event, resolved)
	}

	switch {
	case err == nil:
	case registry.IsPermanent(err):
		d.verdict, d.reason, d.err = verdictDeadLetter, enums.OutboxDLQReasonNonRetryable, err
	case event.AttemptCount+1 >= r.opts.maxAttempts:
		d.verdict, d.reason = verdictDeadLetter, enums.OutboxDLQReasonMaxAttempts
		d.err = fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err)
	default:
		d.verdict, d.err = verdictRetry, err
	}
	return d
}

func (r *Relay) send(ctx context.Context, event models.OutboxEvent, resolved *registry.Resolved) error {
	topic := resolved.Route.Topic
	pub := r.topics(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.opts.publishTimeout)
	defer cancel()
	result := pub.Publish(sendCtx, message(event, resolved))
	if result == nil {
		return registry.Permanent(fmt.Errorf("publisher for %s returned no result", topic))
	}
	_, err := result.Get(sendCtx)
	return err
}

// message carries the stored envelope verbatim; attributes let subscribers
// filter without decoding the body.
func message(event models.OutboxEvent, resolved *registry.Resolved) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, d delivery) error {
	id := d.event.ID
	kind := string(d.event.EventType)
	logCtx := r.logg.WithFields(ctx, d.logFields())

	switch d.verdict {
	case verdictPublished:
		if err := r.store.MarkPublished(ctx, tx, id, r.now()); err != nil {
			return fmt.Errorf("mark published %s: %w", id, err)
		}
		r.metrics.IncPublished(kind)
		r.logg.Info(logCtx, "outbox.published")

	case verdictRetry:
		if err := r.store.MarkFailed(ctx, tx, id, d.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", id, err)
		}
		r.metrics.IncFailed(kind)
		r.logg.Warn(logCtx, "outbox.publish_failed")

	case verdictDeadLetter:
		reason := d.err.Error()
		entry := models.OutboxDLQ{
			EventID:       id,
			EventType:     d.event.EventType,
			AggregateType: d.event.AggregateType,
			AggregateID:   d.event.AggregateID,
			Payload:       d.event.Payload,
			ErrorReason:   d.reason,
			ErrorMessage:  &reason,
			AttemptCount:  d.event.AttemptCount,
			FailedAt:      r.now().UTC(),
		}
		if err := r.dlq.Insert(ctx, tx, entry); err != nil {
			return fmt.Errorf("dead-letter %s: %w", id, err)
		}
		if err := r.store.MarkTerminal(ctx, tx, id, d.err, r.opts.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", id, err)
		}
		r.metrics.IncDeadLettered(string(d.reason))
		r.logg.Warn(logCtx, "outbox.dead_lettered")
	}
	return nil
}

func (d delivery) logFields() map[string]any {
	fields := map[string]any{
		"outbox_id":     d.event.ID.String(),
		"event_type":    string(d.event.EventType),
		"aggregate_id":  d.event.AggregateID.String(),
		"attempt_count": d.event.AttemptCount,
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.err != nil {
		fields["error"] = d.err.Error()
	}
	if d.reason != "" {
		fields["dlq_reason"] = string(d.reason)
	}
	return fields
}
