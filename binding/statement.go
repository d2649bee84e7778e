package binding

import "slices"

// Statement is rendered SQL plus its ordered driver arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Copy returns an independent duplicate; appending to either does not
// affect the other.
func (s *Statement) Copy() *Statement {
	return &Statement{SQL: s.SQL, Args: slices.Clone(s.Args)}
}
