// Package descriptor describes mapped methods: their parameters, declared
// result and routing directives. Descriptors are built once and shared
// read-only by compiled operators.
package descriptor

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/Konsultn-Engineering/sqlmap/mapping"
	"github.com/Konsultn-Engineering/sqlmap/sharding"
)

// Owner identifies the type that declares a group of methods. Its ID is the
// routing key for store resolution.
type Owner struct {
	ID     string
	Table  string       // global table for the owner's templates, optional
	Entity reflect.Type // entity type; names the default table when Table is empty
}

// Sharding is the routing directive of a sharded method. Either strategy may
// be nil.
type Sharding struct {
	Table sharding.TableStrategy
	Store sharding.StoreStrategy
}

// Method is the immutable description of one mapped method.
type Method struct {
	name        string
	owner       Owner
	sql         string
	params      []Parameter
	ret         Return
	globalTable string
	usePrimary  bool
	store       string
	sharding    *Sharding
	mapper      mapping.RowMapper
	results     map[string]string
}

// Option configures a Method directive.
type Option func(*Method)

// GlobalTable sets the table substituted for #table, overriding the owner's.
func GlobalTable(table string) Option {
	return func(m *Method) { m.globalTable = table }
}

// UsePrimary routes reads to the primary store instead of a replica.
func UsePrimary() Option {
	return func(m *Method) { m.usePrimary = true }
}

// Store names the store group to use instead of the owner's.
func Store(name string) Option {
	return func(m *Method) { m.store = name }
}

// WithSharding routes the method by its shard key parameter.
func WithSharding(table sharding.TableStrategy, store sharding.StoreStrategy) Option {
	return func(m *Method) { m.sharding = &Sharding{Table: table, Store: store} }
}

// Mapper overrides the row mapper chosen for the result element.
func Mapper(rm mapping.RowMapper) Option {
	return func(m *Method) { m.mapper = rm }
}

// Results maps Go field names of the result element to columns.
func Results(fieldToColumn map[string]string) Option {
	return func(m *Method) {
		if m.results == nil {
			m.results = make(map[string]string, len(fieldToColumn))
		}
		maps.Copy(m.results, fieldToColumn)
	}
}

// Returns declares the result type. Methods without it return nothing
// (updates still report affected rows through the operator).
func Returns(t reflect.Type) Option {
	return func(m *Method) { m.ret = ReturnOf(t) }
}

// ReturnsOf declares T as the result type.
func ReturnsOf[T any]() Option {
	return Returns(reflect.TypeFor[T]())
}

// NewMethod builds a method descriptor. Parameter positions are assigned
// from their order; unnamed parameters are reachable only positionally.
func NewMethod(owner Owner, name, sql string, params []Parameter, opts ...Option) (*Method, error) {
	if name == "" {
		return nil, errors.New("method name is required")
	}
	if strings.TrimSpace(sql) == "" {
		return nil, fmt.Errorf("method %s: empty sql", name)
	}

	m := &Method{name: name, owner: owner, sql: sql, params: make([]Parameter, len(params))}
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		if p.Type == nil {
			return nil, fmt.Errorf("method %s: parameter %d has no type", name, i+1)
		}
		if p.Name != "" {
			if seen[p.Name] {
				return nil, fmt.Errorf("method %s: duplicate parameter name %q", name, p.Name)
			}
			seen[p.Name] = true
		}
		p.Position = i
		m.params[i] = p
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Method) Name() string { return m.name }
func (m *Method) Owner() Owner { return m.owner }
func (m *Method) SQL() string { return m.sql }
func (m *Method) Return() Return { return m.ret }

// Params returns a copy of the declared parameters.
func (m *Method) Params() []Parameter { return slices.Clone(m.params) }

// GlobalTable returns the method's table directive, falling back to the owner.
func (m *Method) GlobalTable() string {
	if m.globalTable != "" {
		return m.globalTable
	}
	return m.owner.Table
}

func (m *Method) UsePrimary() bool { return m.usePrimary }
func (m *Method) StoreName() string { return m.store }
func (m *Method) Sharding() *Sharding { return m.sharding }
func (m *Method) Mapper() mapping.RowMapper { return m.mapper }
func (m *Method) Results() map[string]string { return maps.Clone(m.results) }

// ShardKey returns the parameter that carries the shard key for scope.
func (m *Method) ShardKey(scope ShardScope) (Parameter, bool) {
	for _, p := range m.params {
		if p.Shard.Scope.Routes(scope) {
			return p, true
		}
	}
	return Parameter{}, false
}

// FullName is owner.method, used in logs and errors.
func (m *Method) FullName() string {
	if m.owner.ID == "" {
		return m.name
	}
	return m.owner.ID + "." + m.name
}
