package operator

import (
	"fmt"
	"reflect"

	"github.com/Konsultn-Engineering/sqlmap/database"
	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/mapping"
	"github.com/Konsultn-Engineering/sqlmap/page"
)

var (
	int64Type = reflect.TypeFor[int64]()
	mapType   = reflect.TypeFor[map[string]any]()
)

// ResultPlan turns the rows of a query into the declared result. The
// shape is decided once; assembling never inspects the declared type again.
type ResultPlan struct {
	ret    descriptor.Return
	mapper mapping.RowMapper
}

// Shape returns the planned result shape.
func (p *ResultPlan) Shape() descriptor.Shape { return p.ret.Shape }

// Mapper returns the row mapper of the result element.
func (p *ResultPlan) Mapper() mapping.RowMapper { return p.mapper }

// newResultPlan selects the row mapper: a declared mapper, then a single
// column mapper for convertible elements, then a struct mapper, then a
// column map for map[string]any.
func newResultPlan(m *descriptor.Method, naming mapping.ColumnNamingStrategy, strict bool) (*ResultPlan, error) {
	ret := m.Return()
	if ret.Void() {
		return nil, fmt.Errorf("query declares no result type")
	}
	if ret.Shape == descriptor.ShapeSet && !ret.Elem.Comparable() {
		return nil, fmt.Errorf("set element %s is not comparable", ret.Elem)
	}

	if rm := m.Mapper(); rm != nil {
		if !rm.Type().AssignableTo(ret.Elem) {
			return nil, fmt.Errorf("mapper produces %s, result element is %s", rm.Type(), ret.Elem)
		}
		return &ResultPlan{ret: ret, mapper: rm}, nil
	}

	if mapping.HasConverter(ret.Elem) {
		rm, err := mapping.NewSingleColumnMapper(ret.Elem)
		if err != nil {
			return nil, err
		}
		return &ResultPlan{ret: ret, mapper: rm}, nil
	}

	st := ret.Elem
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	switch {
	case st.Kind() == reflect.Struct:
		desc, err := mapping.Describe(ret.Elem, m.Results(), naming)
		if err != nil {
			return nil, err
		}
		return &ResultPlan{ret: ret, mapper: mapping.NewStructMapper(desc, strict)}, nil
	case ret.Elem == mapType:
		return &ResultPlan{ret: ret, mapper: mapping.MapMapper{}}, nil
	}
	return nil, fmt.Errorf("no row mapper for %s", ret.Elem)
}

// collect maps every row into a []Elem.
func (p *ResultPlan) collect(rows database.Rows) (reflect.Value, error) {
	out := reflect.MakeSlice(reflect.SliceOf(p.ret.Elem), 0, 8)
	for rows.Next() {
		v, err := p.mapRow(rows)
		if err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, v)
	}
	return out, rows.Err()
}

func (p *ResultPlan) mapRow(rows database.Rows) (reflect.Value, error) {
	x, err := p.mapper.MapRow(rows)
	if err != nil {
		return reflect.Value{}, err
	}
	if x == nil {
		return reflect.Zero(p.ret.Elem), nil
	}
	v := reflect.ValueOf(x)
	if !v.Type().AssignableTo(p.ret.Elem) {
		return reflect.Value{}, fmt.Errorf("mapper returned %s, want %s", v.Type(), p.ret.Elem)
	}
	return v, nil
}

// assemble builds the declared result from rows. Paged results take their
// data through assemblePage instead.
func (p *ResultPlan) assemble(rows database.Rows) (any, error) {
	t := p.ret.Type
	switch p.ret.Shape {
	case descriptor.ShapeScalar, descriptor.ShapeOptional:
		// first row wins, as with a single-object query
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, err
			}
			return p.empty(), nil
		}
		v, err := p.mapRow(rows)
		if err != nil {
			return nil, err
		}
		if p.ret.Shape == descriptor.ShapeScalar {
			return v.Interface(), nil
		}
		opt := reflect.New(t).Elem()
		opt.FieldByName("V").Set(v)
		opt.FieldByName("Valid").SetBool(true)
		return opt.Interface(), nil

	case descriptor.ShapeArray:
		arr := reflect.New(t).Elem()
		i := 0
		for rows.Next() {
			if i >= arr.Len() {
				return nil, fmt.Errorf("query returned more than %d rows for %s", arr.Len(), t)
			}
			v, err := p.mapRow(rows)
			if err != nil {
				return nil, err
			}
			arr.Index(i).Set(v)
			i++
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return arr.Interface(), nil

	case descriptor.ShapeSet:
		set := reflect.MakeMap(t)
		member := reflect.Zero(t.Elem())
		for rows.Next() {
			v, err := p.mapRow(rows)
			if err != nil {
				return nil, err
			}
			set.SetMapIndex(v, member)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return set.Interface(), nil
	}

	data, err := p.collect(rows)
	if err != nil {
		return nil, err
	}
	return p.list(data), nil
}

// list converts collected rows to the declared list or page data type.
func (p *ResultPlan) list(data reflect.Value) any {
	if p.ret.Container == descriptor.ContainerSeq {
		return seqOf(p.ret.Type, data).Interface()
	}
	if p.ret.Type != nil && p.ret.Shape == descriptor.ShapeList && data.Type() != p.ret.Type {
		return data.Convert(p.ret.Type).Interface()
	}
	return data.Interface()
}

// page wraps data and total into the declared paged type.
func (p *ResultPlan) page(data reflect.Value, total int64) (any, error) {
	v, err := page.NewResultOf(p.ret.Type, data, total)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// empty returns the value of the declared shape for a query that has no
// rows: an empty list, set or sequence, a zero array, nil for a scalar, an
// invalid optional, or a page with no data and a zero total.
func (p *ResultPlan) empty() any {
	t := p.ret.Type
	switch p.ret.Shape {
	case descriptor.ShapeScalar:
		return nil
	case descriptor.ShapeList:
		return p.list(reflect.MakeSlice(reflect.SliceOf(p.ret.Elem), 0, 0))
	case descriptor.ShapeSet:
		return reflect.MakeMap(t).Interface()
	case descriptor.ShapePage:
		v, err := p.page(reflect.MakeSlice(reflect.SliceOf(p.ret.Elem), 0, 0), 0)
		if err != nil {
			return reflect.Zero(t).Interface()
		}
		return v
	}
	return reflect.Zero(t).Interface()
}

// seqOf returns a value of the iter.Seq type t yielding the elements of data.
func seqOf(t reflect.Type, data reflect.Value) reflect.Value {
	return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		yield := in[0]
		for i := 0; i < data.Len(); i++ {
			if !yield.Call([]reflect.Value{data.Index(i)})[0].Bool() {
				break
			}
		}
		return nil
	})
}
