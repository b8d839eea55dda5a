package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
)

// Client owns the Postgres pool and is the unit-of-work boundary for the
// checkout engine and the outbox relay.
type Client struct {
	conn *gorm.DB
}

// New opens and pings the pool described by cfg. Statement logging goes
// through logg so slow checkout queries land next to request logs.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	// Simple protocol keeps us compatible with transaction-mode poolers.
	dialector := postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(logg, defaultSlowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	client := &Client{conn: conn}
	pool, err := client.pool()
	if err != nil {
		return nil, err
	}
	tune(pool, cfg)
	if err := pool.PingContext(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("ping database: %w", err), pool.Close())
	}

	if logg != nil {
		stats := map[string]any{"max_open_conns": cfg.MaxOpenConns, "max_idle_conns": cfg.MaxIdleConns}
		logg.Info(logg.WithFields(ctx, stats), "database.connected")
	}
	return client, nil
}

// NewWithConn wraps an already opened connection, typically sqlite in tests.
func NewWithConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

// tune applies the positive pool limits in cfg; zero keeps database/sql defaults.
func tune(pool *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (c *Client) pool() (*sql.DB, error) {
	pool, err := c.conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	return pool, nil
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// SQL exposes the pool to tooling that speaks database/sql, like goose.
func (c *Client) SQL() (*sql.DB, error) {
	return c.pool()
}

// Ping backs /health/ready.
func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn as one unit of work. An error or panic from fn rolls back
// everything issued through tx; the panic is re-raised.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
