package dialect

import "fmt"

type MySQL struct{}

func NewMySQLDialect() Dialect {
	return &MySQL{}
}

func (MySQL) Name() string { return "mysql" }

func (m MySQL) QuoteIdentifier(name string) string {
	return "`" + name + "`"
}

func (m MySQL) Placeholder(n int) string {
	return "?"
}

func (m MySQL) RenderValue(v any) string {
	return renderCommon(v, func(b []byte) string {
		return fmt.Sprintf("X'%x'", b)
	})
}
