package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a pgx connection pool from the provided DSN and waits until
// the database answers a ping. Queries are traced through otelpgx.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.parse_config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.new_pool: %w", err)
	}
	if err := pingWithRetry(ctx, pool, 30*time.Second); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func pingWithRetry(ctx context.Context, p pinger, maxElapsed time.Duration) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 250 * time.Millisecond
	expo.MaxInterval = 5 * time.Second
	expo.MaxElapsedTime = maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			slog.Warn("database not ready", slog.Int("attempt", attempt), slog.Any("error", err))
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return fmt.Errorf("op=postgres.ping: %w", err)
	}
	return nil
}
