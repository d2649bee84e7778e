package binding

import (
	"reflect"
	"strings"
)

type step struct {
	name    string
	index   []int // struct field path
	key     bool  // string-keyed map lookup
	dynamic bool  // interface value, resolved against its dynamic type
}

// Getter reads one resolved reference out of an invocation.
type Getter struct {
	Ref   string
	Param int
	Type  reflect.Type // static type of the referenced value

	steps []step
	ctx   *Context
}

// Properties reports whether the reference walks into the parameter.
func (g *Getter) Properties() bool { return len(g.steps) > 0 }

// Get returns the referenced value. A nil pointer or missing map key on the
// path is a binding error; a nil leaf is returned as nil.
func (g *Getter) Get(inv *Invocation) (any, error) {
	v := inv.values[g.Param]
	if len(g.steps) == 0 {
		return v, nil
	}

	rv := reflect.ValueOf(v)
	for i, s := range g.steps {
		var err *Error
		rv, err = g.walk(rv, s)
		if err != nil {
			err.Reason = err.Reason + " at " + strings.Join(g.path(i), ".")
			return nil, err
		}
	}
	if !rv.IsValid() {
		return nil, nil
	}
	return rv.Interface(), nil
}

func (g *Getter) walk(rv reflect.Value, s step) (reflect.Value, *Error) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}, errorf(g.Ref, "nil value")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return reflect.Value{}, errorf(g.Ref, "nil value")
	}

	switch {
	case s.key:
		out := rv.MapIndex(reflect.ValueOf(s.name).Convert(rv.Type().Key()))
		if !out.IsValid() {
			return reflect.Value{}, errorf(g.Ref, "missing key %q", s.name)
		}
		return out, nil
	case s.dynamic:
		resolved, _, err := g.ctx.step(rv.Type(), s.name)
		if err != nil {
			return reflect.Value{}, &Error{Ref: g.Ref, Reason: "cannot resolve property", Err: err}
		}
		return g.walk(rv, resolved)
	default:
		out, err := rv.FieldByIndexErr(s.index)
		if err != nil {
			return reflect.Value{}, errorf(g.Ref, "nil embedded value")
		}
		return out, nil
	}
}

func (g *Getter) path(upto int) []string {
	out := []string{g.ctx.params[g.Param].Name}
	if out[0] == "" {
		out[0] = "param"
	}
	for _, s := range g.steps[:upto+1] {
		out = append(out, s.name)
	}
	return out
}
