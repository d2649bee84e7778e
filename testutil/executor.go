package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Konsultn-Engineering/sqlmap/database"
	"github.com/Konsultn-Engineering/sqlmap/template"
)

// Result is a canned query result.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Executor is an in-memory database.Executor that records every statement
// and answers queries from a queue of canned results.
type Executor struct {
	mu      sync.Mutex
	queries []template.Statement
	execs   []template.Statement
	batches [][]template.Statement
	results []Result

	// Affected is returned by Exec.
	Affected int64
	// BatchFunc computes ExecBatch results; nil returns 1 per statement.
	BatchFunc func(stmts []*template.Statement) ([]int64, error)
	// Err fails every call when set.
	Err error
}

// Queue appends canned results answered by subsequent queries in order.
func (e *Executor) Queue(results ...Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = append(e.results, results...)
}

func (e *Executor) Query(_ context.Context, sql string, args []any) (database.Rows, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, template.Statement{SQL: sql, Args: args})
	if e.Err != nil {
		return nil, e.Err
	}
	if len(e.results) == 0 {
		return &Rows{}, nil
	}
	r := e.results[0]
	e.results = e.results[1:]
	return &Rows{cols: r.Columns, rows: r.Rows}, nil
}

func (e *Executor) Exec(_ context.Context, sql string, args []any) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.execs = append(e.execs, template.Statement{SQL: sql, Args: args})
	if e.Err != nil {
		return 0, e.Err
	}
	return e.Affected, nil
}

func (e *Executor) ExecBatch(_ context.Context, stmts []*template.Statement) ([]int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	batch := make([]template.Statement, len(stmts))
	for i, s := range stmts {
		batch[i] = *s
	}
	e.batches = append(e.batches, batch)
	if e.Err != nil {
		return nil, &database.BatchError{Index: 0, Size: len(stmts), Err: e.Err}
	}
	if e.BatchFunc != nil {
		return e.BatchFunc(stmts)
	}
	out := make([]int64, len(stmts))
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

func (e *Executor) Ping(context.Context) error { return e.Err }
func (e *Executor) Close() error { return nil }

// Queries returns the query statements run so far.
func (e *Executor) Queries() []template.Statement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]template.Statement(nil), e.queries...)
}

// Execs returns the update statements run so far.
func (e *Executor) Execs() []template.Statement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]template.Statement(nil), e.execs...)
}

// Batches returns the batches run so far.
func (e *Executor) Batches() [][]template.Statement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]template.Statement(nil), e.batches...)
}

// Calls is the total number of statements and batches submitted.
func (e *Executor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queries) + len(e.execs) + len(e.batches)
}

// Rows is an in-memory database.Rows. Scan only accepts *any destinations,
// which is what the row mappers pass.
type Rows struct {
	cols   []string
	rows   [][]any
	pos    int
	closed bool
}

// NewRows returns rows over the given values.
func NewRows(cols []string, rows ...[]any) *Rows {
	return &Rows{cols: cols, rows: rows}
}

func (r *Rows) Next() bool {
	if r.closed || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.pos == 0 {
		return fmt.Errorf("scan before next")
	}
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		p, ok := d.(*any)
		if !ok {
			return fmt.Errorf("scan: destination %d is %T, want *any", i, d)
		}
		*p = row[i]
	}
	return nil
}

func (r *Rows) Columns() ([]string, error) { return r.cols, nil }
func (r *Rows) Err() error { return nil }
func (r *Rows) Close() error { r.closed = true; return nil }

var _ database.Executor = (*Executor)(nil)
