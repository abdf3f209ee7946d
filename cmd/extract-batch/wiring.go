package main

import (
	"context"
	"log/slog"

	"github.com/daniel-osaze/newsletter-mentions/internal/cache"
	"github.com/daniel-osaze/newsletter-mentions/internal/common"
	"github.com/daniel-osaze/newsletter-mentions/internal/ratelimit"
)

// resources tracks backends that need closing on exit.
type resources struct {
	sqlite   *cache.SQLiteStore
	postgres *cache.PostgresStore
	pgWindow *ratelimit.PostgresWindow
}

func (r *resources) openCache(ctx context.Context, cfg *common.Config, logger *slog.Logger) (cache.Store, error) {
	switch cfg.Cache.Driver {
	case "":
		return nil, nil
	case "memory":
		return cache.NewMemoryStore(), nil
	case "sqlite":
		s, err := cache.OpenSQLite(ctx, cfg.Cache.DSN, logger)
		if err != nil {
			return nil, err
		}
		r.sqlite = s
		return s, nil
	case "postgres":
		s, err := cache.OpenPostgres(ctx, cache.PostgresConfig{DSN: cfg.Cache.DSN}, logger)
		if err != nil {
			return nil, err
		}
		r.postgres = s
		return s, nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown cache driver: "+cfg.Cache.Driver, common.ErrInvalidInput)
	}
}

func (r *resources) openLimiter(ctx context.Context, cfg *common.Config, logger *slog.Logger) (ratelimit.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	if cfg.RateLimit.DSN != "" {
		w, err := ratelimit.OpenPostgresWindow(ctx, cfg.RateLimit.DSN, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger)
		if err != nil {
			return nil, err
		}
		r.pgWindow = w
		return w, nil
	}
	return ratelimit.NewSlidingWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window), nil
}

func (r *resources) close(logger *slog.Logger) {
	if r.sqlite != nil {
		if err := r.sqlite.Close(); err != nil {
			logger.Warn("close sqlite cache", "error", err)
		}
	}
	if r.postgres != nil {
		r.postgres.Close()
	}
	if r.pgWindow != nil {
		r.pgWindow.Close()
	}
}
