package operator

import (
	"fmt"
	"reflect"

	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/mapping"
)

func isCount(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// countOf converts an affected row count to t: an integer, or for a bool
// whether any row was affected.
func countOf(t reflect.Type, n int64) (reflect.Value, error) {
	if t.Kind() == reflect.Bool {
		return reflect.ValueOf(n > 0).Convert(t), nil
	}
	v, err := mapping.Convert(t, n)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}

// updateResult converts the affected rows of an update to the declared
// result: nothing, an integer count or a bool.
func updateResult(ret descriptor.Return) (func(int64) (any, error), error) {
	if ret.Void() {
		return func(int64) (any, error) { return nil, nil }, nil
	}
	if ret.Shape != descriptor.ShapeScalar || (!isCount(ret.Type) && ret.Type.Kind() != reflect.Bool) {
		return nil, fmt.Errorf("update cannot return %s, want an integer or bool", ret.Type)
	}
	return func(n int64) (any, error) {
		v, err := countOf(ret.Type, n)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}, nil
}

// batchResult converts per-statement affected rows of a batch update to
// the declared result: nothing, a slice of counts or bools, or an integer
// total.
func batchResult(ret descriptor.Return) (func([]int64) (any, error), error) {
	if ret.Void() {
		return func([]int64) (any, error) { return nil, nil }, nil
	}
	switch {
	case ret.Shape == descriptor.ShapeList && ret.Container == descriptor.ContainerSlice &&
		(isCount(ret.Elem) || ret.Elem.Kind() == reflect.Bool):
		return func(ns []int64) (any, error) {
			out := reflect.MakeSlice(ret.Type, len(ns), len(ns))
			for i, n := range ns {
				v, err := countOf(ret.Elem, n)
				if err != nil {
					return nil, err
				}
				out.Index(i).Set(v)
			}
			return out.Interface(), nil
		}, nil
	case ret.Shape == descriptor.ShapeScalar && isCount(ret.Type):
		return func(ns []int64) (any, error) {
			var total int64
			for _, n := range ns {
				total += n
			}
			v, err := countOf(ret.Type, total)
			if err != nil {
				return nil, err
			}
			return v.Interface(), nil
		}, nil
	}
	return nil, fmt.Errorf("batch update cannot return %s, want a slice of counts or a total", ret.Type)
}
