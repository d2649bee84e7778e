package mapping

import (
	"reflect"
	"strings"
)

// TagName is the struct tag read for column mapping.
const TagName = "db"

// FieldTag is the column-mapping part of a `db` struct tag.
type FieldTag struct {
	Column string // explicit column, empty when derived from the naming strategy
	Skip   bool   // db:"-"
}

// ParseTag reads the `db` tag of a struct field.
//
// Supported forms:
//
//	`db:"user_id"`                // explicit column
//	`db:"column:user_id;primary"` // key:value options; unknown options are ignored
//	`db:"-"`                      // not mapped
func ParseTag(tag reflect.StructTag) FieldTag {
	value, ok := tag.Lookup(TagName)
	if !ok || value == "" {
		return FieldTag{}
	}
	if value == "-" {
		return FieldTag{Skip: true}
	}
	if !strings.ContainsAny(value, ";:") {
		return FieldTag{Column: strings.TrimSpace(value)}
	}

	var parsed FieldTag
	for _, option := range strings.Split(value, ";") {
		option = strings.TrimSpace(option)
		key, val, found := strings.Cut(option, ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "column", "name":
			parsed.Column = strings.TrimSpace(val)
		}
	}
	return parsed
}
