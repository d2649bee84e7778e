package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Konsultn-Engineering/sqlmap/template"
)

// PgxExecutor implements Executor for pgxpool.Pool.
type PgxExecutor struct {
	pool *pgxpool.Pool
}

// NewPgxExecutor creates a new PgxExecutor.
func NewPgxExecutor(pool *pgxpool.Pool) *PgxExecutor {
	return &PgxExecutor{pool: pool}
}

// Pool returns the underlying pool.
func (p *PgxExecutor) Pool() *pgxpool.Pool { return p.pool }

// Query executes a query that returns rows.
func (p *PgxExecutor) Query(ctx context.Context, query string, args []any) (Rows, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

// Exec executes a statement and returns the affected row count.
func (p *PgxExecutor) Exec(ctx context.Context, query string, args []any) (int64, error) {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExecBatch sends stmts as one pgx.Batch inside a transaction.
func (p *PgxExecutor) ExecBatch(ctx context.Context, stmts []*template.Statement) ([]int64, error) {
	counts := make([]int64, len(stmts))
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, st := range stmts {
			batch.Queue(st.SQL, st.Args...)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range stmts {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return &BatchError{Index: i, Size: len(stmts), Err: err}
			}
			counts[i] = tag.RowsAffected()
		}
		return br.Close()
	})
	if err != nil {
		if _, ok := err.(*BatchError); ok {
			return nil, err
		}
		return nil, &BatchError{Index: -1, Size: len(stmts), Err: err}
	}
	return counts, nil
}

// Ping verifies the connection to the database is alive.
func (p *PgxExecutor) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

// Close closes the pool.
func (p *PgxExecutor) Close() error {
	p.pool.Close()
	return nil
}

// PgxRows implements Rows for pgx.Rows.
type PgxRows struct {
	rows              pgx.Rows
	fieldDescriptions []pgconn.FieldDescription
}

// Next prepares the next result row for reading.
func (p *PgxRows) Next() bool { return p.rows.Next() }

// Scan copies the columns from the current row into the provided destinations.
func (p *PgxRows) Scan(dest ...any) error { return p.rows.Scan(dest...) }

// Err returns the error, if any, that was encountered during iteration.
func (p *PgxRows) Err() error { return p.rows.Err() }

// Close closes the rows iterator.
func (p *PgxRows) Close() error { p.rows.Close(); return nil }

// Columns returns the column names.
func (p *PgxRows) Columns() ([]string, error) {
	if p.fieldDescriptions == nil {
		p.fieldDescriptions = p.rows.FieldDescriptions()
	}
	columns := make([]string, len(p.fieldDescriptions))
	for i, fd := range p.fieldDescriptions {
		columns[i] = fd.Name
	}
	return columns, nil
}

var _ Executor = (*PgxExecutor)(nil)
