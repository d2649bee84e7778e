package descriptor

import (
	"reflect"
	"strings"
)

// Shape is the closed set of result shapes a query can produce.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeOptional
	ShapeArray
	ShapeSet
	ShapeList
	ShapePage
)

var shapeNames = [...]string{"scalar", "optional", "array", "set", "list", "page"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "unknown"
}

// Container distinguishes the two list representations.
type Container int

const (
	ContainerSlice Container = iota // []T
	ContainerSeq                    // iter.Seq[T], materialized before it is returned
)

// Pager is implemented by paged result types. PageElem reports the element type.
type Pager interface {
	PageElem() reflect.Type
}

var pagerType = reflect.TypeFor[Pager]()

// Return describes the declared result of a method.
type Return struct {
	Shape     Shape
	Container Container
	Type      reflect.Type // declared type; nil when the method returns nothing
	Elem      reflect.Type // mapped element type
}

// Void reports whether the method declares no result.
func (r Return) Void() bool { return r.Type == nil }

// ReturnOf classifies a declared result type:
//
//	[]T              list
//	iter.Seq[T]      list (sequence)
//	[N]T             array
//	map[T]struct{}   set
//	sql.Null[T]      optional
//	page.Result[T]   page
//	anything else    scalar
//
// Byte slices and json.RawMessage are scalars.
func ReturnOf(t reflect.Type) Return {
	if t == nil {
		return Return{}
	}
	if t.Kind() == reflect.Struct && t.Implements(pagerType) {
		elem := reflect.Zero(t).Interface().(Pager).PageElem()
		return Return{Shape: ShapePage, Type: t, Elem: elem}
	}

	switch t.Kind() {
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			return Return{Shape: ShapeList, Container: ContainerSlice, Type: t, Elem: t.Elem()}
		}
	case reflect.Array:
		if t.Elem().Kind() != reflect.Uint8 {
			return Return{Shape: ShapeArray, Type: t, Elem: t.Elem()}
		}
	case reflect.Map:
		if v := t.Elem(); v.Kind() == reflect.Struct && v.NumField() == 0 {
			return Return{Shape: ShapeSet, Type: t, Elem: t.Key()}
		}
	case reflect.Func:
		if elem, ok := seqElem(t); ok {
			return Return{Shape: ShapeList, Container: ContainerSeq, Type: t, Elem: elem}
		}
	case reflect.Struct:
		if elem, ok := nullElem(t); ok {
			return Return{Shape: ShapeOptional, Type: t, Elem: elem}
		}
	}
	return Return{Shape: ShapeScalar, Type: t, Elem: t}
}

// seqElem matches func(yield func(T) bool).
func seqElem(t reflect.Type) (reflect.Type, bool) {
	if t.NumIn() != 1 || t.NumOut() != 0 {
		return nil, false
	}
	y := t.In(0)
	if y.Kind() != reflect.Func || y.NumIn() != 1 || y.NumOut() != 1 || y.Out(0).Kind() != reflect.Bool {
		return nil, false
	}
	return y.In(0), true
}

// nullElem matches database/sql's generic Null[T].
func nullElem(t reflect.Type) (reflect.Type, bool) {
	if t.PkgPath() != "database/sql" || !strings.HasPrefix(t.Name(), "Null[") {
		return nil, false
	}
	v, ok := t.FieldByName("V")
	if !ok {
		return nil, false
	}
	return v.Type, true
}
