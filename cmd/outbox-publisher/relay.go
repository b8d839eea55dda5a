package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
	"github.com/angelmondragon/storetrack-backend/pkg/metrics"
	"github.com/angelmondragon/storetrack-backend/pkg/outbox/registry"
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type broker interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

// outboxStore is the row bookkeeping the relay needs. Every call runs inside
// the batch transaction that locked the rows.
type outboxStore interface {
	FetchPending(ctx context.Context, tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminal(ctx context.Context, tx *gorm.DB, id uuid.UUID, cause error, attempts int) error
}

type deadLetters interface {
	Insert(ctx context.Context, tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.Resolved, error)
}

// relayOptions are the tunables taken from config.OutboxConfig, with zero
// values replaced by sane defaults.
type relayOptions struct {
	batchSize      int
	maxAttempts    int
	idle           time.Duration
	maxBackoff     time.Duration
	publishTimeout time.Duration
}

func optionsFrom(cfg config.OutboxConfig) relayOptions {
	orDefault := func(v, def int) int {
		if v <= 0 {
			return def
		}
		return v
	}
	return relayOptions{
		batchSize:      orDefault(cfg.BatchSize, 50),
		maxAttempts:    orDefault(cfg.MaxAttempts, 10),
		idle:           time.Duration(orDefault(cfg.PollIntervalMS, 500)) * time.Millisecond,
		maxBackoff:     time.Duration(orDefault(cfg.MaxBackoffMS, 10_000)) * time.Millisecond,
		publishTimeout: time.Duration(orDefault(cfg.PublishTimeoutMS, 15_000)) * time.Millisecond,
	}
}

type RelayDeps struct {
	Outbox      config.OutboxConfig
	Logger      *logger.Logger
	DB          txRunner
	Broker      broker
	Store       outboxStore
	DeadLetters deadLetters
	Events      eventResolver
	Metrics     *metrics.OutboxMetrics
	// Topics overrides the Pub/Sub publisher lookup; tests use it.
	Topics func(topic string) publisher
	Now    func() time.Time
}

// Relay drains outbox_events onto Pub/Sub. One batch is one database
// transaction: rows stay locked until their outcome is written, so several
// relays can run side by side without double publishing.
type Relay struct {
	logg    *logger.Logger
	db      txRunner
	broker  broker
	store   outboxStore
	dlq     deadLetters
	events  eventResolver
	metrics *metrics.OutboxMetrics
	topics  func(topic string) publisher
	now     func() time.Time
	opts    relayOptions
}

func NewRelay(deps RelayDeps) (*Relay, error) {
	var missing error
	for name, ok := range map[string]bool{
		"logger":       deps.Logger != nil,
		"database":     deps.DB != nil,
		"broker":       deps.Broker != nil,
		"outbox store": deps.Store != nil,
		"dead letters": deps.DeadLetters != nil,
		"event types":  deps.Events != nil,
	} {
		if !ok {
			missing = multierr.Append(missing, fmt.Errorf("%s is required", name))
		}
	}
	if missing != nil {
		return nil, missing
	}

	r := &Relay{
		logg:    deps.Logger,
		db:      deps.DB,
		broker:  deps.Broker,
		store:   deps.Store,
		dlq:     deps.DeadLetters,
		events:  deps.Events,
		metrics: deps.Metrics,
		topics:  deps.Topics,
		now:     deps.Now,
		opts:    optionsFrom(deps.Outbox),
	}
	if r.topics == nil {
		r.topics = brokerTopics(deps.Broker)
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Run polls until ctx ends. A full batch is followed immediately by the
// next one; an empty batch waits one poll interval; a failed batch backs
// off exponentially up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.checkDependencies(ctx); err != nil {
		return err
	}

	pace := newPacer(r.opts.idle, r.opts.maxBackoff)
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox.relay_stopped")
			return err
		}

		handled, err := r.drain(ctx)
		var pause time.Duration
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			r.logg.Error(ctx, "outbox.batch_failed", err)
			pause = pace.failure()
		case handled > 0:
			pace.reset()
			continue
		default:
			pause = pace.idle()
		}

		if err := wait(ctx, pause); err != nil {
			r.logg.Info(ctx, "outbox.relay_stopped")
			return err
		}
	}
}

// checkDependencies pings the database and the broker and reports every
// failure together.
func (r *Relay) checkDependencies(ctx context.Context) error {
	dbErr := r.db.Ping(ctx)
	if dbErr != nil {
		dbErr = fmt.Errorf("database ping: %w", dbErr)
	}
	brokerErr := r.broker.Ping(ctx)
	if brokerErr != nil {
		brokerErr = fmt.Errorf("pubsub ping: %w", brokerErr)
	}
	err := multierr.Combine(dbErr, brokerErr)
	if err != nil {
		r.logg.Error(ctx, "outbox.dependencies_unavailable", err)
	}
	return err
}
