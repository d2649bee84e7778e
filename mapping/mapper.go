// Package mapping turns result rows into Go values: scalar converters for
// single-column results, declarative struct descriptors for everything else.
package mapping

import (
	"fmt"
	"reflect"
)

// RowScanner is the row cursor handed to mappers. *sql.Rows satisfies it.
type RowScanner interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// RowMapper maps the current row of a cursor to one value of Type().
type RowMapper interface {
	MapRow(rs RowScanner) (any, error)
	Type() reflect.Type
}

type funcMapper[T any] struct {
	fn func(RowScanner) (T, error)
}

// MapperFunc adapts a typed function to RowMapper.
func MapperFunc[T any](fn func(RowScanner) (T, error)) RowMapper {
	return funcMapper[T]{fn: fn}
}

func (m funcMapper[T]) MapRow(rs RowScanner) (any, error) { return m.fn(rs) }
func (m funcMapper[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

// SingleColumnMapper reads the first column and converts it to its type.
type SingleColumnMapper struct {
	typ reflect.Type
}

// NewSingleColumnMapper returns a mapper for a scalar-convertible type.
func NewSingleColumnMapper(t reflect.Type) (*SingleColumnMapper, error) {
	if !HasConverter(t) {
		return nil, fmt.Errorf("no converter registered for %s", t)
	}
	return &SingleColumnMapper{typ: t}, nil
}

func (m *SingleColumnMapper) Type() reflect.Type { return m.typ }

func (m *SingleColumnMapper) MapRow(rs RowScanner) (any, error) {
	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("single column mapping to %s: result has no columns", m.typ)
	}
	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rs.Scan(dest...); err != nil {
		return nil, err
	}
	v, err := Convert(m.typ, raw[0])
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", cols[0], err)
	}
	return v, nil
}

// MapMapper maps each row to a map[string]any keyed by column name.
type MapMapper struct{}

var mapType = reflect.TypeFor[map[string]any]()

func (MapMapper) Type() reflect.Type { return mapType }

func (MapMapper) MapRow(rs RowScanner) (any, error) {
	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rs.Scan(dest...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(cols))
	for i, c := range cols {
		if b, ok := raw[i].([]byte); ok {
			raw[i] = append([]byte(nil), b...)
		}
		row[c] = raw[i]
	}
	return row, nil
}
