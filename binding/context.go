// Package binding resolves placeholder references against a method's
// parameters. Resolution happens once per method; calls only walk the
// precomputed field paths.
package binding

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/mapping"
)

// Context is the compile-time view of a method's parameters.
type Context struct {
	params  []descriptor.Parameter
	byName  map[string]int
	single  int // sole struct-like parameter, -1 when there is none
	naming  mapping.ColumnNamingStrategy
	getters map[string]*Getter
	mu      sync.Mutex
	descs   sync.Map // reflect.Type -> *mapping.Descriptor
}

// NewContext builds the context for params. naming derives property column
// names; nil uses the default strategy.
func NewContext(params []descriptor.Parameter, naming mapping.ColumnNamingStrategy) *Context {
	if naming == nil {
		naming = mapping.DefaultNamingStrategy()
	}
	c := &Context{
		params:  params,
		byName:  make(map[string]int, len(params)),
		single:  -1,
		naming:  naming,
		getters: make(map[string]*Getter),
	}
	for i, p := range params {
		if p.Name != "" {
			c.byName[p.Name] = i
		}
	}
	if len(params) == 1 && hasProperties(params[0].Type) {
		c.single = 0
	}
	return c
}

// Params returns the parameters the context was built from.
func (c *Context) Params() []descriptor.Parameter { return c.params }

// Param returns the parameter at position i.
func (c *Context) Param(i int) descriptor.Parameter { return c.params[i] }

// Resolve returns the getter for a reference such as "id", "2",
// "user.address.city" or, with a single struct parameter, "city" as a
// shorthand for ":1.city".
func (c *Context) Resolve(ref string) (*Getter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.getters[ref]; ok {
		return g, nil
	}
	g, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	c.getters[ref] = g
	return g, nil
}

func (c *Context) resolve(ref string) (*Getter, error) {
	parts := strings.Split(ref, ".")
	for _, p := range parts {
		if p == "" {
			return nil, errorf(ref, "malformed reference")
		}
	}

	param, rest := -1, parts[1:]
	if n, err := strconv.Atoi(parts[0]); err == nil {
		if n < 1 || n > len(c.params) {
			return nil, errorf(ref, "position %d out of range, method has %d parameters", n, len(c.params))
		}
		param = n - 1
	} else if i, ok := c.byName[parts[0]]; ok {
		param = i
	} else if c.single >= 0 {
		param, rest = c.single, parts
	} else {
		return nil, errorf(ref, "no parameter named %q", parts[0])
	}

	g := &Getter{Ref: ref, Param: param, Type: c.params[param].Type, ctx: c}
	for _, prop := range rest {
		s, next, err := c.step(g.Type, prop)
		if err != nil {
			return nil, &Error{Ref: ref, Reason: "cannot resolve property " + strconv.Quote(prop), Err: err}
		}
		g.steps = append(g.steps, s)
		g.Type = next
	}
	return g, nil
}

func (c *Context) step(t reflect.Type, prop string) (step, reflect.Type, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		desc, err := c.describe(t)
		if err != nil {
			return step{}, nil, err
		}
		if f, ok := desc.Lookup(prop); ok {
			return step{name: prop, index: f.Index}, f.Type, nil
		}
		if sf, ok := t.FieldByName(prop); ok && sf.IsExported() {
			return step{name: prop, index: sf.Index}, sf.Type, nil
		}
		return step{}, nil, fmt.Errorf("%s has no field for %q", t, prop)
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return step{}, nil, fmt.Errorf("%s is not keyed by string", t)
		}
		return step{name: prop, key: true}, t.Elem(), nil
	case reflect.Interface:
		return step{name: prop, dynamic: true}, t, nil
	}
	return step{}, nil, fmt.Errorf("%s has no properties", t)
}

func hasProperties(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		return !mapping.HasConverter(t)
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	}
	return false
}

// describe caches struct descriptors per type; dynamic (interface-typed)
// steps also land here during calls.
func (c *Context) describe(t reflect.Type) (*mapping.Descriptor, error) {
	if d, ok := c.descs.Load(t); ok {
		return d.(*mapping.Descriptor), nil
	}
	d, err := mapping.Describe(t, nil, c.naming)
	if err != nil {
		return nil, err
	}
	c.descs.Store(t, d)
	return d, nil
}
