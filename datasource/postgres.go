package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Konsultn-Engineering/sqlmap/database"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
)

// PostgresProvider opens pgx connection pools.
type PostgresProvider struct{}

func (PostgresProvider) Name() string { return "postgres" }
func (PostgresProvider) Dialect() dialect.Dialect { return dialect.NewPostgresDialect() }

// Open creates a pool and verifies it with a ping, retrying per cfg.Retry.
func (PostgresProvider) Open(ctx context.Context, cfg Config) (database.Executor, error) {
	dsn, err := PostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.Pool.MaxOpen <= 0 {
		cfg.Pool.MaxOpen = 10
	}
	if cfg.Pool.MaxLifetime == 0 {
		cfg.Pool.MaxLifetime = time.Hour
	}
	if cfg.Pool.MaxIdleTime == 0 {
		cfg.Pool.MaxIdleTime = 30 * time.Minute
	}
	poolCfg.MaxConns = int32(cfg.Pool.MaxOpen)
	if cfg.Pool.MaxIdle > 0 {
		poolCfg.MinConns = int32(min(cfg.Pool.MaxIdle, cfg.Pool.MaxOpen))
	}
	poolCfg.MaxConnLifetime = cfg.Pool.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.Pool.MaxIdleTime

	var pool *pgxpool.Pool
	err = retryConnect(ctx, cfg.Retry, func(ctx context.Context) error {
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return database.NewPgxExecutor(pool), nil
}

// PostgresDSN builds the connection URL for cfg. cfg.Params win over
// sslmode.
func PostgresDSN(cfg Config) (string, error) {
	return urlDSN("postgres", cfg, map[string]string{"sslmode": cfg.SSLMode})
}
