package dialect

import (
	"fmt"
	"strings"
)

// Dialect describes how rendered statements address a particular database:
// bind placeholder style, identifier quoting and literal rendering for
// human-readable output.
type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	RenderValue(v any) string
}

// ForName returns the dialect registered under name.
func ForName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return NewPostgresDialect(), nil
	case "mysql", "":
		return NewMySQLDialect(), nil
	case "tidb":
		return NewTiDBDialect(), nil
	case "sqlite", "sqlite3":
		return NewSQLiteDialect(), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

// Interpolate inlines args into sql for logging and explain output.
// The result must never be sent to a database.
func Interpolate(d Dialect, sql string, args []any) string {
	var sb strings.Builder
	sb.Grow(len(sql) + len(args)*8)
	n := 0
	for i := 0; i < len(sql); i++ {
		marker := d.Placeholder(n + 1)
		if n < len(args) && strings.HasPrefix(sql[i:], marker) {
			sb.WriteString(d.RenderValue(args[n]))
			i += len(marker) - 1
			n++
			continue
		}
		sb.WriteByte(sql[i])
	}
	return sb.String()
}
