package dialect

import "fmt"

// SQLite uses "?" markers like MySQL but quotes identifiers the ANSI way.
type SQLite struct{}

func NewSQLiteDialect() Dialect {
	return &SQLite{}
}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

func (SQLite) Placeholder(int) string {
	return "?"
}

func (SQLite) RenderValue(v any) string {
	return renderCommon(v, func(b []byte) string {
		return fmt.Sprintf("X'%x'", b)
	})
}
