// Package page carries the paging argument of a query, the paged result
// envelope and the statement rewriting that applies them.
package page

import (
	"fmt"
	"reflect"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one sort key.
type Order struct {
	Column    string
	Direction Direction
}

// By sorts ascending by column.
func By(column string) Order { return Order{Column: column, Direction: Asc} }

// ByDesc sorts descending by column.
func ByDesc(column string) Order { return Order{Column: column, Direction: Desc} }

// Page is the paging and sorting argument of a query. Number is 1-based.
// A zero Size leaves the statement unpaged; Sort still applies.
type Page struct {
	Number int
	Size   int
	Sort   []Order
}

// Of returns page number of the given size.
func Of(number, size int, sort ...Order) Page {
	return Page{Number: number, Size: size, Sort: sort}
}

// Offset is the number of rows skipped before the page.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Validate checks the page bounds and sort keys.
func (p Page) Validate() error {
	if p.Size < 0 {
		return fmt.Errorf("page size must not be negative, got %d", p.Size)
	}
	if p.Size > 0 && p.Number < 1 {
		return fmt.Errorf("page number must be at least 1, got %d", p.Number)
	}
	for _, o := range p.Sort {
		if !validIdentifier(o.Column) {
			return fmt.Errorf("invalid sort column %q", o.Column)
		}
		switch o.Direction {
		case "", Asc, Desc:
		default:
			return fmt.Errorf("invalid sort direction %q", o.Direction)
		}
	}
	return nil
}

// Result is a page of rows together with the total row count of the
// unpaged query.
type Result[T any] struct {
	Data  []T
	Total int64
}

// PageElem reports the element type; it marks Result as a paged result type.
func (Result[T]) PageElem() reflect.Type { return reflect.TypeFor[T]() }

// Empty returns a result with no rows and a zero total.
func Empty[T any]() Result[T] {
	return Result[T]{Data: []T{}}
}

// NewResultOf builds a value of the paged type t from a slice of its
// element type.
func NewResultOf(t reflect.Type, data reflect.Value, total int64) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	d := out.FieldByName("Data")
	tot := out.FieldByName("Total")
	if !d.IsValid() || !tot.IsValid() || d.Type() != data.Type() {
		return reflect.Value{}, fmt.Errorf("%s is not a paged result of %s", t, data.Type())
	}
	d.Set(data)
	tot.SetInt(total)
	return out, nil
}

// Type is the reflect type of Page.
var Type = reflect.TypeFor[Page]()

// IsPage reports whether t is Page or *Page.
func IsPage(t reflect.Type) bool {
	return t == Type || (t.Kind() == reflect.Pointer && t.Elem() == Type)
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	start := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if start {
				return false
			}
			start = true
			continue
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if start {
				return false
			}
		default:
			return false
		}
		start = false
	}
	return !start
}
