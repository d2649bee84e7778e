// Package template parses SQL templates with named placeholders and renders
// them into driver statements.
//
//	select * from #table where id = :id and status in (:statuses)
//
// :ref binds one value, :ref inside IN ( ) expands to one marker per element
// and #table is replaced by the table resolved for the call.
package template

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Konsultn-Engineering/sqlmap/binding"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
)

// ErrEmptyStatement is returned by Render when an IN expansion binds to an
// empty collection, leaving the statement without meaning.
var ErrEmptyStatement = errors.New("template: empty IN expansion")

// Statement is a rendered statement.
type Statement = binding.Statement

// Kind is the statement class of a template.
type Kind int

const (
	Read Kind = iota
	Write
)

func (k Kind) String() string {
	if k == Read {
		return "read"
	}
	return "write"
}

var readKeywords = map[string]bool{
	"SELECT": true, "WITH": true, "SHOW": true, "EXPLAIN": true, "DESCRIBE": true, "VALUES": true,
}

// Template is a parsed SQL template. It is read-only once parsed; Bind
// returns a new Template.
type Template struct {
	text    string
	kind    Kind
	segs    []segment
	getters []*binding.Getter // per segment, set by Bind
}

// Parse parses a template.
func Parse(text string) (*Template, error) {
	segs, err := parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	kind := Write
	if first := firstKeyword(text); readKeywords[first] && (first != "WITH" || !modifiesData(text)) {
		kind = Read
	}
	return &Template{text: text, kind: kind, segs: segs}, nil
}

// MustParse is Parse that panics on error.
func MustParse(text string) *Template {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Text() string { return t.text }
func (t *Template) Kind() Kind { return t.kind }

// GlobalTables returns the global table placeholders, one entry per use.
func (t *Template) GlobalTables() []string {
	var out []string
	for _, s := range t.segs {
		if s.kind == segTable {
			out = append(out, tableName)
		}
	}
	return out
}

// UsesGlobalTable reports whether the template references #table.
func (t *Template) UsesGlobalTable() bool { return len(t.GlobalTables()) > 0 }

// IterableParameters returns the references expanded inside IN ( ).
func (t *Template) IterableParameters() []string {
	return t.refs(segIn)
}

// ValueParameters returns the references bound as single values.
func (t *Template) ValueParameters() []string {
	return t.refs(segValue)
}

func (t *Template) refs(kind segKind) []string {
	var out []string
	for _, s := range t.segs {
		if s.kind == kind {
			out = append(out, s.text)
		}
	}
	return out
}

// Bound reports whether placeholders have been resolved by Bind.
func (t *Template) Bound() bool { return t.getters != nil }

// Bind resolves every placeholder against ctx and returns the bound
// template. Unknown references and IN targets that cannot be iterated
// are errors.
func (t *Template) Bind(ctx *binding.Context) (*Template, error) {
	getters := make([]*binding.Getter, len(t.segs))
	var errs []error
	for i, s := range t.segs {
		if s.kind != segValue && s.kind != segIn {
			continue
		}
		g, err := ctx.Resolve(s.text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if s.kind == segIn && !expandable(g.Type) {
			errs = append(errs, fmt.Errorf("IN (:%s): %s is not a collection", s.text, g.Type))
			continue
		}
		getters[i] = g
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	bound := *t
	bound.getters = getters
	return &bound, nil
}

func expandable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Interface:
		return true
	}
	return false
}

// Render renders the bound template against one invocation. The statement
// is also recorded on inv.
func (t *Template) Render(inv *binding.Invocation, d dialect.Dialect) (*Statement, error) {
	if !t.Bound() {
		return nil, errors.New("template: render before bind")
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.Grow(len(t.text) + 16)

	for i, s := range t.segs {
		switch s.kind {
		case segText:
			sb.WriteString(s.text)
		case segTable:
			table := inv.GlobalTable()
			if table == "" {
				return nil, &binding.Error{Ref: "#" + tableName, Reason: "no table resolved for call"}
			}
			sb.WriteString(table)
		case segValue:
			v, err := t.getters[i].Get(inv)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
			sb.WriteString(d.Placeholder(len(args)))
		case segIn:
			v, err := t.getters[i].Get(inv)
			if err != nil {
				return nil, err
			}
			rv := reflect.ValueOf(v)
			if rv.IsValid() && rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return nil, &binding.Error{Ref: s.text, Reason: fmt.Sprintf("%T cannot be expanded in IN ( )", v)}
			}
			if !rv.IsValid() || rv.Len() == 0 {
				return nil, fmt.Errorf("%w: :%s", ErrEmptyStatement, s.text)
			}
			for j := 0; j < rv.Len(); j++ {
				if j > 0 {
					sb.WriteString(", ")
				}
				args = append(args, rv.Index(j).Interface())
				sb.WriteString(d.Placeholder(len(args)))
			}
		}
	}

	stmt := &Statement{SQL: sb.String(), Args: args}
	inv.SetStatement(stmt)
	return stmt, nil
}
