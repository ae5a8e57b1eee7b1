package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"go.uber.org/zap"
)

// PostgresOpts configures the shared connection pool. URI is a standard
// postgres:// connection string.
type PostgresOpts struct {
	URI string
}

var (
	connStr string
	pool    *pgxpool.Pool
)

// InitPostgres dials once to fail fast on a bad URI, then opens the pool
// every other package in this process acquires connections from. Call
// once at startup, before any MustGet* call.
func InitPostgres(opts PostgresOpts) error {
	if opts.URI == "" {
		return errors.New("postgres URI is required")
	}

	conn, err := pgx.Connect(context.Background(), opts.URI)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer conn.Close(context.Background())
	connStr = opts.URI

	poolConfig, err := pgxpool.ParseConfig(opts.URI)
	if err != nil {
		return fmt.Errorf("parse postgres URI: %w", err)
	}
	poolConfig.MaxConns = 30
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 15 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return fmt.Errorf("create postgres pool: %w", err)
	}

	logger.Info("postgres pool ready", zap.Int32("maxConns", poolConfig.MaxConns))
	return nil
}

// MustGetUnpooledPostgresSession opens a standalone connection outside the
// pool, for long-lived operations (e.g. LISTEN/NOTIFY) that shouldn't hold
// a pooled slot. Panics if InitPostgres hasn't run or the dial fails —
// both are programmer errors, never caused by request data.
func MustGetUnpooledPostgresSession() *pgx.Conn {
	if connStr == "" {
		panic("postgres is not initialized")
	}

	conn, err := pgx.Connect(context.Background(), connStr)
	if err != nil {
		panic("connect to postgres: " + err.Error())
	}

	return conn
}

// MustGetPooledPostgresSession acquires a connection from the shared pool.
// Panics if InitPostgres hasn't run or the pool is exhausted/unreachable —
// both are programmer/ops errors the caller has no way to recover from
// inline, matching the fail-fast style the rest of this package's callers
// (runregistry, scheduler) rely on for their own Must-prefixed helpers.
func MustGetPooledPostgresSession() *pgxpool.Conn {
	if pool == nil {
		panic("postgres pool is not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		panic("acquire from postgres pool: " + err.Error())
	}
	return conn
}
