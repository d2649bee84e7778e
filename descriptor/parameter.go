package descriptor

import (
	"fmt"
	"reflect"
)

// ShardScope selects what a shard key routes.
type ShardScope int

const (
	ShardNone  ShardScope = iota
	ShardTable            // physical table name
	ShardStore            // store group
	ShardBoth
)

func (s ShardScope) String() string {
	switch s {
	case ShardTable:
		return "table"
	case ShardStore:
		return "store"
	case ShardBoth:
		return "both"
	default:
		return "none"
	}
}

// Routes reports whether the scope covers other.
func (s ShardScope) Routes(other ShardScope) bool {
	return s == other || s == ShardBoth
}

// ShardKey marks a parameter, or a property path inside it, as the shard key.
type ShardKey struct {
	Scope    ShardScope
	Property string // dotted path inside the parameter, empty for the value itself
}

// Parameter describes one declared method parameter.
type Parameter struct {
	Position int // 0-based
	Name     string
	Type     reflect.Type
	Shard    ShardKey
}

// ParamOption configures a Parameter.
type ParamOption func(*Parameter)

// ShardBy marks the parameter as the shard key for scope. A non-empty property
// selects a field (db column or Go name) or map key inside the argument.
func ShardBy(scope ShardScope, property string) ParamOption {
	return func(p *Parameter) {
		p.Shard = ShardKey{Scope: scope, Property: property}
	}
}

// Param declares a parameter of type t.
func Param(name string, t reflect.Type, opts ...ParamOption) Parameter {
	p := Parameter{Name: name, Type: t}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// ParamOf declares a parameter of type T.
func ParamOf[T any](name string, opts ...ParamOption) Parameter {
	return Param(name, reflect.TypeFor[T](), opts...)
}

// Iterable reports whether the parameter can be expanded element by element.
// Byte slices are values, not collections.
func (p Parameter) Iterable() bool {
	if p.Type == nil {
		return false
	}
	switch p.Type.Kind() {
	case reflect.Slice, reflect.Array:
		return p.Type.Elem().Kind() != reflect.Uint8
	}
	return false
}

// ElementOf returns the element-typed parameter used to bind one row of a
// batch. The receiver is not modified.
func (p Parameter) ElementOf() (Parameter, error) {
	if !p.Iterable() {
		return Parameter{}, fmt.Errorf("parameter %s (%s) is not iterable", p.Name, p.Type)
	}
	elem := p
	elem.Type = p.Type.Elem()
	return elem, nil
}

func (p Parameter) String() string {
	return fmt.Sprintf(":%d %s %s", p.Position+1, p.Name, p.Type)
}
