// Package operator compiles mapped methods into reusable operators and runs
// them: classification into query, update or batch update, table and store
// routing, and assembly of query results into the declared shape.
package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Konsultn-Engineering/sqlmap/binding"
	"github.com/Konsultn-Engineering/sqlmap/datasource"
	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
	"github.com/Konsultn-Engineering/sqlmap/mapping"
	"github.com/Konsultn-Engineering/sqlmap/page"
	"github.com/Konsultn-Engineering/sqlmap/template"
)

// Operator is a compiled method. Operators are immutable and safe for
// concurrent use; each Execute binds its own arguments.
type Operator interface {
	Execute(ctx context.Context, args ...any) (any, error)
	Kind() Kind
	Method() *descriptor.Method
}

// Outcome labels of the executions metric.
const (
	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

type base struct {
	plan    *Plan
	dialect dialect.Dialect // nil renders with the store's dialect
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
}

func (b *base) Kind() Kind { return b.plan.Kind }
func (b *base) Method() *descriptor.Method { return b.plan.Method }

// observe runs one call with a call-scoped logger and records it.
func (b *base) observe(ctx context.Context, run func(context.Context, *slog.Logger) (any, string, error)) (any, error) {
	start := time.Now()
	log := b.logger.With("call", ulid.Make().String(), "method", b.plan.Method.FullName(), "kind", b.plan.Kind.String())

	v, outcome, err := run(ctx, log)
	if err != nil {
		outcome = outcomeError
	}
	elapsed := time.Since(start)
	b.metrics.observe(b.plan.Kind, outcome, elapsed)
	log.Debug("executed", "outcome", outcome, "elapsed", elapsed)
	return v, err
}

// route binds values, resolves the table and then the store.
func (b *base) route(values ...any) (*binding.Invocation, *datasource.Store, error) {
	inv, err := b.plan.invocation(values...)
	if err != nil {
		return nil, nil, err
	}
	store, err := b.plan.Store.Resolve(inv)
	if err != nil {
		return nil, nil, err
	}
	return inv, store, nil
}

func (b *base) render(inv *binding.Invocation, store *datasource.Store) (*template.Statement, error) {
	d := b.dialect
	if d == nil {
		d = store.Dialect
	}
	if d == nil {
		d = dialect.NewPostgresDialect()
	}
	return b.plan.Template.Render(inv, d)
}

// skipEmpty reports whether a render error is an empty IN expansion that
// the configuration turns into an empty result.
func (b *base) skipEmpty(err error) bool {
	return b.cfg.CompatibleWithEmptyList && errors.Is(err, template.ErrEmptyStatement)
}

type queryOperator struct {
	base
	pages page.Handler
	count mapping.RowMapper
}

func (o *queryOperator) Execute(ctx context.Context, args ...any) (any, error) {
	return o.observe(ctx, func(ctx context.Context, log *slog.Logger) (any, string, error) {
		inv, store, err := o.route(args...)
		if err != nil {
			return nil, "", err
		}
		stmt, err := o.render(inv, store)
		if o.skipEmpty(err) {
			log.Debug("empty IN expansion, returning empty result", "error", err)
			return o.plan.Result.empty(), outcomeEmpty, nil
		}
		if err != nil {
			return nil, "", err
		}
		log.Debug("routed", "store", store.Name, "class", o.plan.Store.Class().String(), "table", inv.GlobalTable())

		pg := o.plan.pageOf(inv)
		if o.plan.Result.Shape() == descriptor.ShapePage {
			if pg == nil {
				return nil, "", &binding.Error{Ref: fmt.Sprint(o.plan.pageParam + 1), Reason: "paged query called with a nil page"}
			}
			v, err := o.queryPage(ctx, store, stmt, pg)
			return v, outcomeOK, err
		}

		if pg != nil {
			if err := o.pages.PageAndSort(stmt, pg); err != nil {
				return nil, "", err
			}
		}
		rows, err := store.Executor.Query(ctx, stmt.SQL, stmt.Args)
		if err != nil {
			return nil, "", err
		}
		defer rows.Close()
		v, err := o.plan.Result.assemble(rows)
		return v, outcomeOK, err
	})
}

// queryPage runs the count of the unpaged statement, then the page itself.
func (o *queryOperator) queryPage(ctx context.Context, store *datasource.Store, stmt *template.Statement, pg *page.Page) (any, error) {
	countStmt, err := o.pages.CountOnly(stmt)
	if err != nil {
		return nil, err
	}
	total, err := o.total(ctx, store, countStmt)
	if err != nil {
		return nil, err
	}

	if err := o.pages.PageAndSort(stmt, pg); err != nil {
		return nil, err
	}
	rows, err := store.Executor.Query(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	data, err := o.plan.Result.collect(rows)
	if err != nil {
		return nil, err
	}
	return o.plan.Result.page(data, total)
}

func (o *queryOperator) total(ctx context.Context, store *datasource.Store, stmt *template.Statement) (int64, error) {
	rows, err := store.Executor.Query(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	n, err := o.count.MapRow(rows)
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

type updateOperator struct {
	base
}

func (o *updateOperator) Execute(ctx context.Context, args ...any) (any, error) {
	return o.observe(ctx, func(ctx context.Context, log *slog.Logger) (any, string, error) {
		inv, store, err := o.route(args...)
		if err != nil {
			return nil, "", err
		}
		stmt, err := o.render(inv, store)
		if o.skipEmpty(err) {
			log.Debug("empty IN expansion, nothing to update", "error", err)
			v, err := o.plan.updateRet(0)
			return v, outcomeEmpty, err
		}
		if err != nil {
			return nil, "", err
		}
		log.Debug("routed", "store", store.Name, "table", inv.GlobalTable())

		n, err := store.Executor.Exec(ctx, stmt.SQL, stmt.Args)
		if err != nil {
			return nil, "", err
		}
		v, err := o.plan.updateRet(n)
		return v, outcomeOK, err
	})
}

type batchOperator struct {
	base
}

// batch is the statements of one batch update bound for the same store.
type batch struct {
	store *datasource.Store
	stmts []*template.Statement
	index []int // position of each statement in the call's collection
}

func (o *batchOperator) Execute(ctx context.Context, args ...any) (any, error) {
	return o.observe(ctx, func(ctx context.Context, log *slog.Logger) (any, string, error) {
		rv, err := o.plan.elements(args)
		if err != nil {
			return nil, "", err
		}
		n := 0
		if rv.IsValid() {
			n = rv.Len()
		}
		counts := make([]int64, n)
		if n == 0 {
			v, err := o.plan.batchRet(counts)
			return v, outcomeEmpty, err
		}

		batches, err := o.split(rv)
		if err != nil {
			return nil, "", err
		}
		for _, b := range batches {
			log.Debug("routed batch", "store", b.store.Name, "statements", len(b.stmts))
			res, err := b.store.Executor.ExecBatch(ctx, b.stmts)
			if err != nil {
				return nil, "", err
			}
			if len(res) != len(b.stmts) {
				return nil, "", fmt.Errorf("batch returned %d counts for %d statements", len(res), len(b.stmts))
			}
			for j, i := range b.index {
				counts[i] = res[j]
			}
		}
		v, err := o.plan.batchRet(counts)
		return v, outcomeOK, err
	})
}

// split binds and renders every element and groups the statements by
// store, keeping the order in which stores were first seen.
func (o *batchOperator) split(rv reflect.Value) ([]*batch, error) {
	var (
		batches []*batch
		byStore = map[*datasource.Store]*batch{}
	)
	for i := 0; i < rv.Len(); i++ {
		inv, store, err := o.route(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("batch element %d: %w", i, err)
		}
		stmt, err := o.render(inv, store)
		if o.skipEmpty(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("batch element %d: %w", i, err)
		}
		b, ok := byStore[store]
		if !ok {
			b = &batch{store: store}
			byStore[store] = b
			batches = append(batches, b)
		}
		b.stmts = append(b.stmts, stmt)
		b.index = append(b.index, i)
	}
	return batches, nil
}
