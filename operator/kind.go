package operator

import (
	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/template"
)

// Kind is the execution strategy of an operator, fixed at compile time.
type Kind int

const (
	Query Kind = iota
	Update
	BatchUpdate
)

func (k Kind) String() string {
	switch k {
	case Query:
		return "query"
	case Update:
		return "update"
	case BatchUpdate:
		return "batch_update"
	}
	return "unknown"
}

// Classify decides the kind of a template bound to params. Reads are
// queries. A write becomes a batch update only when the method takes one
// iterable parameter that the template does not expand with IN ( ).
func Classify(params []descriptor.Parameter, t *template.Template) Kind {
	if t.Kind() == template.Read {
		return Query
	}
	if len(params) == 1 && params[0].Iterable() && len(t.IterableParameters()) == 0 {
		return BatchUpdate
	}
	return Update
}
