package binding

import (
	"reflect"
	"slices"
	"strconv"
)

// Invocation holds the argument values of one call together with the table
// and statement derived from them. It is created per call and never shared.
type Invocation struct {
	ctx    *Context
	values []any
	table  string
	stmt   *Statement
}

// NewInvocation binds values to the context's parameters.
func (c *Context) NewInvocation(values ...any) (*Invocation, error) {
	if len(values) != len(c.params) {
		return nil, errorf("", "expected %d arguments, got %d", len(c.params), len(values))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		want := c.params[i].Type
		if got := reflect.TypeOf(v); !got.AssignableTo(want) {
			return nil, errorf(strconv.Itoa(i+1), "argument of type %s is not assignable to %s", got, want)
		}
	}
	return &Invocation{ctx: c, values: values}, nil
}

// Context returns the compile-time context the invocation was bound against.
func (inv *Invocation) Context() *Context { return inv.ctx }

// Arg returns the raw argument at position i.
func (inv *Invocation) Arg(i int) any { return inv.values[i] }

// Args returns a copy of the raw arguments.
func (inv *Invocation) Args() []any { return slices.Clone(inv.values) }

// Value resolves a reference against this call's arguments.
func (inv *Invocation) Value(ref string) (any, error) {
	g, err := inv.ctx.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return g.Get(inv)
}

func (inv *Invocation) SetGlobalTable(table string) { inv.table = table }
func (inv *Invocation) GlobalTable() string { return inv.table }

func (inv *Invocation) SetStatement(s *Statement) { inv.stmt = s }
func (inv *Invocation) Statement() *Statement { return inv.stmt }
