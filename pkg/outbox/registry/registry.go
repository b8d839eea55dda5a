// Package registry maps outbox event types to topics and payload schemas.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/enums"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox/payloads"
)

// PermanentError marks a row that will never publish however often it is
// retried. The relay dead-letters it immediately.
type PermanentError struct {
	err error
}

func (e *PermanentError) Error() string { return e.err.Error() }
func (e *PermanentError) Unwrap() error { return e.err }

// Permanent wraps err as a PermanentError. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Route is where one event type goes and what its body decodes to.
type Route struct {
	Type      enums.OutboxEventType
	Aggregate enums.OutboxAggregateType
	Topic     string
	payload   func() any
}

// Resolved is an outbox row checked against its route and decoded.
type Resolved struct {
	Route    Route
	Envelope outbox.Envelope
	Payload  any
}

type Registry struct {
	routes map[enums.OutboxEventType]Route
}

// New routes every sale event to the configured sales topic.
func New(cfg config.PubSubConfig) (*Registry, error) {
	if cfg.SalesTopic == "" {
		return nil, errors.New("sales topic is required")
	}
	return &Registry{routes: map[enums.OutboxEventType]Route{
		enums.EventSaleTransactionRecorded: {
			Type:      enums.EventSaleTransactionRecorded,
			Aggregate: enums.AggregateSaleTransaction,
			Topic:     cfg.SalesTopic,
			payload:   func() any { return &payloads.SaleTransactionRecordedEvent{} },
		},
	}}, nil
}

// Topics lists each distinct topic the registry routes to.
func (r *Registry) Topics() []string {
	seen := make(map[string]struct{}, len(r.routes))
	var topics []string
	for _, route := range r.routes {
		if _, ok := seen[route.Topic]; ok {
			continue
		}
		seen[route.Topic] = struct{}{}
		topics = append(topics, route.Topic)
	}
	return topics
}

// Resolve decodes row. Every failure is permanent: a row that does not
// decode now never will.
func (r *Registry) Resolve(row models.OutboxEvent) (*Resolved, error) {
	route, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("no route for event type %s", row.EventType))
	case route.Aggregate != row.AggregateType:
		return nil, Permanent(fmt.Errorf("%s expects aggregate %s, row has %s", row.EventType, route.Aggregate, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("row has no aggregate id"))
	}

	env, err := outbox.OpenEnvelope(row.Payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", row.EventType, err))
	}
	body := route.payload()
	if err := env.Into(body); err != nil {
		return nil, Permanent(fmt.Errorf("decode %s payload: %w", row.EventType, err))
	}
	return &Resolved{Route: route, Envelope: env, Payload: body}, nil
}
