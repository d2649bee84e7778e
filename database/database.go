// Package database executes rendered statements against a store.
package database

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/sqlmap/template"
)

// Executor runs statements against one physical store. Implementations are
// safe for concurrent use; connection pooling and timeouts are theirs.
type Executor interface {
	Query(ctx context.Context, sql string, args []any) (Rows, error)
	// Exec returns the number of affected rows.
	Exec(ctx context.Context, sql string, args []any) (int64, error)
	// ExecBatch runs stmts as one unit and returns affected rows per
	// statement. Any failure aborts the whole batch with a *BatchError.
	ExecBatch(ctx context.Context, stmts []*template.Statement) ([]int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Rows is a forward-only result cursor.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// BatchError reports the statement that failed a batch. Index is -1 when
// the batch failed after all statements ran (commit).
type BatchError struct {
	Index int
	Size  int
	Err   error
}

func (e *BatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("batch of %d statements failed: %v", e.Size, e.Err)
	}
	return fmt.Sprintf("batch statement %d of %d failed: %v", e.Index+1, e.Size, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
