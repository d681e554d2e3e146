// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "certificate_fires"

// FireLatchConfig controls the Postgres connection pool used for the latch.
type FireLatchConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// FireLatch records which certificate runs already fired, one row per key.
type FireLatch struct {
	pool  execCloser
	table string
	now   func() time.Time
}

// NewFireLatch connects to Postgres and ensures the latch table exists.
func NewFireLatch(ctx context.Context, cfg FireLatchConfig) (*FireLatch, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	latch, err := NewFireLatchWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := latch.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return latch, nil
}

// NewFireLatchWithPool constructs a latch from an existing pool (primarily for testing).
func NewFireLatchWithPool(pool execCloser, table string) (*FireLatch, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &FireLatch{pool: pool, table: table, now: time.Now}, nil
}

// EnsureSchema creates the latch table if it is missing.
func (l *FireLatch) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	fire_key TEXT PRIMARY KEY,
	fired_at TIMESTAMPTZ NOT NULL
)`, l.table)
	if _, err := l.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create latch table: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (l *FireLatch) Close() {
	if l == nil || l.pool == nil {
		return
	}
	l.pool.Close()
}

// Acquire inserts key and reports whether this call was the first to do so.
func (l *FireLatch) Acquire(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("latch key is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (fire_key, fired_at)
VALUES ($1, $2)
ON CONFLICT (fire_key) DO NOTHING`, l.table)
	tag, err := l.pool.Exec(ctx, query, key, l.now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert latch: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release deletes key so a later run can acquire it again.
func (l *FireLatch) Release(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("latch key is required")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE fire_key = $1`, l.table)
	if _, err := l.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete latch: %w", err)
	}
	return nil
}
