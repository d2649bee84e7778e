package dialect

import (
	"fmt"
	"strconv"
)

type Postgres struct{}

func NewPostgresDialect() Dialect {
	return &Postgres{}
}

func (Postgres) Name() string { return "postgres" }

func (p Postgres) QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

func (p Postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (Postgres) RenderValue(v any) string {
	return renderCommon(v, func(b []byte) string {
		return fmt.Sprintf("'\\x%x'::bytea", b)
	})
}
