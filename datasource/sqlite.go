package datasource

import (
	"context"
	"database/sql"
	"net/url"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Konsultn-Engineering/sqlmap/database"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
)

// SQLiteProvider opens sqlite databases through modernc.org/sqlite.
// Config.Database is the file path; empty means a private in-memory database.
type SQLiteProvider struct{}

func (SQLiteProvider) Name() string { return "sqlite" }
func (SQLiteProvider) Dialect() dialect.Dialect { return dialect.NewSQLiteDialect() }

func (SQLiteProvider) Open(ctx context.Context, cfg Config) (database.Executor, error) {
	db, err := sql.Open("sqlite", SQLiteDSN(cfg))
	if err != nil {
		return nil, err
	}

	maxOpen := cfg.Pool.MaxOpen
	if cfg.Database == "" || cfg.Database == ":memory:" {
		// every connection to :memory: is a separate database
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if cfg.Pool.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdle)
	}
	db.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.MaxIdleTime)

	if err := retryConnect(ctx, cfg.Retry, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return database.NewSQLExecutor(db), nil
}

// SQLiteDSN builds the modernc DSN; Params become _pragma entries.
func SQLiteDSN(cfg Config) string {
	path := cfg.Database
	if path == "" {
		path = ":memory:"
	}
	if len(cfg.Params) == 0 {
		return path
	}
	keys := make([]string, 0, len(cfg.Params))
	for k := range cfg.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	q := make([]string, 0, len(keys))
	for _, k := range keys {
		q = append(q, "_pragma="+url.QueryEscape(k+"("+cfg.Params[k]+")"))
	}
	return "file:" + path + "?" + strings.Join(q, "&")
}
