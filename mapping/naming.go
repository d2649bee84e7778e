package mapping

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

// pluralizeClient is shared; the pluralize client is safe for concurrent reads.
var pluralizeClient = pluralizer.NewClient()

// =========================================================================
// Interfaces
// =========================================================================

// NamingStrategy derives default column and table names from Go identifiers.
// Explicit `db` tags and result overrides always win over it.
type NamingStrategy interface {
	ColumnNamingStrategy
	TableNamingStrategy
}

// ColumnNamingStrategy converts a Go field name to a result column name.
type ColumnNamingStrategy interface {
	ColumnName(fieldName string) string
}

// TableNamingStrategy converts a Go type name to a table name. It is used for
// an owner's default table when the owner only declares an entity type.
type TableNamingStrategy interface {
	TableName(typeName string) string
}

// =========================================================================
// Column naming
// =========================================================================

// ColumnNamingType represents a column naming convention.
type ColumnNamingType int

const (
	ColumnSnakeCase  ColumnNamingType = iota // user_id, created_at
	ColumnCamelCase                          // userId, createdAt
	ColumnPascalCase                         // UserId, CreatedAt
)

type columnNaming struct {
	namingType ColumnNamingType
}

// NewColumnNamingStrategy creates a column naming strategy.
func NewColumnNamingStrategy(namingType ColumnNamingType) ColumnNamingStrategy {
	return columnNaming{namingType: namingType}
}

func (c columnNaming) ColumnName(fieldName string) string {
	switch c.namingType {
	case ColumnCamelCase:
		return toCamelCase(fieldName)
	case ColumnPascalCase:
		return toPascalCase(fieldName)
	default:
		return toSnakeCase(fieldName)
	}
}

// =========================================================================
// Table naming
// =========================================================================

// TableNamingType represents a table naming convention.
type TableNamingType int

const (
	TableSnakeCasePlural   TableNamingType = iota // users, blog_posts
	TableSnakeCaseSingular                        // user, blog_post
	TableCamelCasePlural                          // users, blogPosts
	TablePascalCasePlural                         // Users, BlogPosts
)

type tableNaming struct {
	namingType TableNamingType
}

// NewTableNamingStrategy creates a table naming strategy.
func NewTableNamingStrategy(namingType TableNamingType) TableNamingStrategy {
	return tableNaming{namingType: namingType}
}

func (t tableNaming) TableName(typeName string) string {
	switch t.namingType {
	case TableSnakeCaseSingular:
		return toSnakeCase(typeName)
	case TableCamelCasePlural:
		return pluralize(toCamelCase(typeName))
	case TablePascalCasePlural:
		return pluralize(toPascalCase(typeName))
	default:
		return pluralize(toSnakeCase(typeName))
	}
}

type combinedNaming struct {
	ColumnNamingStrategy
	TableNamingStrategy
}

// NewNamingStrategy combines a column and a table strategy.
func NewNamingStrategy(columns ColumnNamingStrategy, tables TableNamingStrategy) NamingStrategy {
	return combinedNaming{ColumnNamingStrategy: columns, TableNamingStrategy: tables}
}

// DefaultNamingStrategy uses snake_case columns and plural snake_case tables.
func DefaultNamingStrategy() NamingStrategy {
	return NewNamingStrategy(NewColumnNamingStrategy(ColumnSnakeCase), NewTableNamingStrategy(TableSnakeCasePlural))
}

// NamingStrategyByName maps configuration names to strategies. Unknown names
// fall back to the default.
func NamingStrategyByName(name string) NamingStrategy {
	switch strings.ToLower(name) {
	case "camel", "camelcase":
		return NewNamingStrategy(NewColumnNamingStrategy(ColumnCamelCase), NewTableNamingStrategy(TableCamelCasePlural))
	case "pascal", "pascalcase":
		return NewNamingStrategy(NewColumnNamingStrategy(ColumnPascalCase), NewTableNamingStrategy(TablePascalCasePlural))
	case "snake_singular":
		return NewNamingStrategy(NewColumnNamingStrategy(ColumnSnakeCase), NewTableNamingStrategy(TableSnakeCaseSingular))
	default:
		return DefaultNamingStrategy()
	}
}

// =========================================================================
// Conversions
// =========================================================================

// toSnakeCase handles acronyms: UserID -> user_id, HTTPServer -> http_server.
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}
	if strings.Contains(name, "_") && !hasUpperCase(name) {
		return name
	}

	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func toCamelCase(name string) string {
	pascal := toPascalCase(name)
	if pascal == "" {
		return ""
	}
	r := []rune(pascal)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func toPascalCase(name string) string {
	parts := strings.Split(toSnakeCase(name), "_")
	var b strings.Builder
	b.Grow(len(name))
	for _, part := range parts {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// pluralize pluralizes the last word of a snake_case, camelCase or PascalCase name.
func pluralize(name string) string {
	if name == "" {
		return ""
	}
	cut := strings.LastIndexByte(name, '_') + 1
	if cut == 0 {
		for i := len(name) - 1; i > 0; i-- {
			if unicode.IsUpper(rune(name[i])) {
				cut = i
				break
			}
		}
	}
	head, last := name[:cut], name[cut:]
	return head + preserveCase(last, pluralizeClient.Plural(strings.ToLower(last)))
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func preserveCase(original, result string) string {
	if original == "" || result == "" {
		return result
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(result)
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(result)
	}
	return strings.ToUpper(result[:1]) + strings.ToLower(result[1:])
}
