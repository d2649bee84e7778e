package operator

import (
	"fmt"
	"reflect"

	"github.com/Konsultn-Engineering/sqlmap/binding"
	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
	"github.com/Konsultn-Engineering/sqlmap/page"
	"github.com/Konsultn-Engineering/sqlmap/template"
)

// Plan is everything compiled for one method. Operators execute a plan;
// explain prints one.
type Plan struct {
	Method   *descriptor.Method
	Kind     Kind
	Template *template.Template     // bound
	Params   []descriptor.Parameter // batch updates bind one element
	Table    TableResolver
	Store    StoreResolver
	Result   *ResultPlan // queries only

	outer     *binding.Context // declared parameters
	ctx       *binding.Context // Params
	pageParam int              // -1 without a page argument
	updateRet func(int64) (any, error)
	batchRet  func([]int64) (any, error)
}

// PageParam returns the position of the page argument, or -1.
func (p *Plan) PageParam() int { return p.pageParam }

// invocation binds one call's values and resolves its table.
func (p *Plan) invocation(values ...any) (*binding.Invocation, error) {
	inv, err := p.ctx.NewInvocation(values...)
	if err != nil {
		return nil, err
	}
	table, err := p.Table.Resolve(inv)
	if err != nil {
		return nil, err
	}
	if table != "" {
		inv.SetGlobalTable(table)
	}
	return inv, nil
}

// elements checks the arguments of a batch update and returns the
// collection to iterate.
func (p *Plan) elements(args []any) (reflect.Value, error) {
	if _, err := p.outer.NewInvocation(args...); err != nil {
		return reflect.Value{}, err
	}
	rv := reflect.ValueOf(args[0])
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	return rv, nil
}

// Render renders the statements a call with args would run, without
// resolving a store. Batch updates render one statement per element.
func (p *Plan) Render(d dialect.Dialect, args ...any) ([]*template.Statement, error) {
	values := [][]any{args}
	if p.Kind == BatchUpdate {
		rv, err := p.elements(args)
		if err != nil {
			return nil, err
		}
		values = values[:0]
		for i := 0; rv.IsValid() && i < rv.Len(); i++ {
			values = append(values, []any{rv.Index(i).Interface()})
		}
	}

	out := make([]*template.Statement, 0, len(values))
	for _, vs := range values {
		inv, err := p.invocation(vs...)
		if err != nil {
			return nil, err
		}
		stmt, err := p.Template.Render(inv, d)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// pageOf returns the page argument of a call, nil when there is none.
func (p *Plan) pageOf(inv *binding.Invocation) *page.Page {
	if p.pageParam < 0 {
		return nil
	}
	switch v := inv.Arg(p.pageParam).(type) {
	case page.Page:
		return &v
	case *page.Page:
		return v
	}
	return nil
}

// findPageParam returns the position of the page.Page parameter.
func findPageParam(params []descriptor.Parameter) (int, error) {
	at := -1
	for _, prm := range params {
		if !page.IsPage(prm.Type) {
			continue
		}
		if at >= 0 {
			return -1, fmt.Errorf("parameters %d and %d are both pages", at+1, prm.Position+1)
		}
		at = prm.Position
	}
	return at, nil
}
