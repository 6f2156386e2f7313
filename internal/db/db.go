package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Document validation holds row locks only briefly but fans out across
// requests, so keep a few warm connections and cap growth. Explicit pool_*
// parameters in the URL take precedence.
const (
	defaultMaxConns        = 16
	defaultMinConns        = 2
	defaultMaxConnIdleTime = 5 * time.Minute
)

// NewPool connects using DATABASE_URL and verifies the connection with a
// ping before returning.
func NewPool(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}
	if !strings.Contains(connStr, "pool_max_conns") {
		config.MaxConns = defaultMaxConns
	}
	if !strings.Contains(connStr, "pool_min_conns") {
		config.MinConns = defaultMinConns
	}
	if !strings.Contains(connStr, "pool_max_conn_idle_time") {
		config.MaxConnIdleTime = defaultMaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
