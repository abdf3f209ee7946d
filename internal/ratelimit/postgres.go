package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const permitsSchema = `
CREATE TABLE IF NOT EXISTS rate_limit_permits (
	bucket     TEXT NOT NULL,
	granted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_rate_limit_permits_bucket ON rate_limit_permits (bucket, granted_at)`

// PostgresWindow is a shared sliding-window Limiter for multi-process
// deployments. Permits are acquire-only rows; expired rows are pruned lazily.
type PostgresWindow struct {
	pool   *pgxpool.Pool
	limit  int
	window time.Duration
	logger *slog.Logger
}

// OpenPostgresWindow creates the pool and ensures the permits table exists.
func OpenPostgresWindow(ctx context.Context, dsn string, limit int, window time.Duration, logger *slog.Logger) (*PostgresWindow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("ratelimit.postgres.parse_config_error", "error", err)
		return nil, err
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "newsletter-mentions"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("ratelimit.postgres.connect_error", "error", err)
		return nil, err
	}
	if _, err := pool.Exec(ctx, permitsSchema); err != nil {
		pool.Close()
		logger.Error("ratelimit.postgres.schema_error", "error", err)
		return nil, err
	}
	return &PostgresWindow{pool: pool, limit: limit, window: window, logger: logger}, nil
}

func (w *PostgresWindow) Allow(ctx context.Context, bucket string) (bool, error) {
	cutoff := time.Now().Add(-w.window)

	// prune then count; a small over-admit race between processes is acceptable
	// for provider-throttle protection.
	if _, err := w.pool.Exec(ctx,
		`DELETE FROM rate_limit_permits WHERE bucket = $1 AND granted_at < $2`, bucket, cutoff); err != nil {
		return false, err
	}

	var count int
	if err := w.pool.QueryRow(ctx,
		`SELECT count(*) FROM rate_limit_permits WHERE bucket = $1 AND granted_at >= $2`,
		bucket, cutoff,
	).Scan(&count); err != nil {
		return false, err
	}
	if count >= w.limit {
		return false, nil
	}

	if _, err := w.pool.Exec(ctx,
		`INSERT INTO rate_limit_permits (bucket) VALUES ($1)`, bucket); err != nil {
		return false, err
	}
	return true, nil
}

func (w *PostgresWindow) Close() {
	w.pool.Close()
}
