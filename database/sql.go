package database

import (
	"context"
	"database/sql"

	"github.com/Konsultn-Engineering/sqlmap/template"
)

// SQLExecutor implements Executor for *sql.DB.
type SQLExecutor struct {
	db *sql.DB
}

// NewSQLExecutor creates a new SQLExecutor.
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// DB returns the underlying handle.
func (s *SQLExecutor) DB() *sql.DB { return s.db }

// Query executes a query that returns rows.
func (s *SQLExecutor) Query(ctx context.Context, query string, args []any) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec executes a statement and returns the affected row count.
func (s *SQLExecutor) Exec(ctx context.Context, query string, args []any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExecBatch runs stmts in one transaction. Each distinct SQL text is
// prepared once and reused for every statement that shares it.
func (s *SQLExecutor) ExecBatch(ctx context.Context, stmts []*template.Statement) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &BatchError{Index: -1, Size: len(stmts), Err: err}
	}

	prepared := make(map[string]*sql.Stmt)
	defer func() {
		for _, ps := range prepared {
			_ = ps.Close()
		}
	}()

	counts := make([]int64, len(stmts))
	for i, st := range stmts {
		ps, ok := prepared[st.SQL]
		if !ok {
			ps, err = tx.PrepareContext(ctx, st.SQL)
			if err != nil {
				_ = tx.Rollback()
				return nil, &BatchError{Index: i, Size: len(stmts), Err: err}
			}
			prepared[st.SQL] = ps
		}
		res, err := ps.ExecContext(ctx, st.Args...)
		if err == nil {
			counts[i], err = res.RowsAffected()
		}
		if err != nil {
			_ = tx.Rollback()
			return nil, &BatchError{Index: i, Size: len(stmts), Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &BatchError{Index: -1, Size: len(stmts), Err: err}
	}
	return counts, nil
}

// Ping verifies the connection to the database is alive.
func (s *SQLExecutor) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *SQLExecutor) Close() error { return s.db.Close() }

var _ Executor = (*SQLExecutor)(nil)
