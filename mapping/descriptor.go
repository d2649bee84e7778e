package mapping

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Field is one mapped struct field.
type Field struct {
	Name   string // Go field name; promoted fields use the leaf name
	Column string
	Index  []int
	Type   reflect.Type
}

// Descriptor is the field-to-column mapping of a struct type. It is built
// once and never changes, so mapping rows does not inspect struct tags.
type Descriptor struct {
	Type   reflect.Type // declared type, struct or pointer to struct
	Fields []Field

	byColumn map[string]int
}

// Describe builds the Descriptor for t. Column names come from, in order of
// precedence: overrides (Go field name to column), the `db` tag, naming.
func Describe(t reflect.Type, overrides map[string]string, naming ColumnNamingStrategy) (*Descriptor, error) {
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot describe %s: not a struct", t)
	}
	if naming == nil {
		naming = DefaultNamingStrategy()
	}

	d := &Descriptor{Type: t, byColumn: map[string]int{}}
	used := map[string]bool{}
	d.collect(st, nil, overrides, naming, used)

	var unknown []string
	for name := range overrides {
		if !used[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("result overrides name unknown fields of %s: %s", st, strings.Join(unknown, ", "))
	}
	return d, nil
}

func (d *Descriptor) collect(st reflect.Type, parent []int, overrides map[string]string, naming ColumnNamingStrategy, used map[string]bool) {
	var embedded []reflect.StructField
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		tag := ParseTag(sf.Tag)
		if tag.Skip {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && tag.Column == "" && !HasConverter(sf.Type) {
			embedded = append(embedded, sf)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		column := tag.Column
		if override, ok := overrides[sf.Name]; ok {
			column = override
			used[sf.Name] = true
		}
		if column == "" {
			column = naming.ColumnName(sf.Name)
		}
		key := normalizeColumn(column)
		if _, dup := d.byColumn[key]; dup {
			continue
		}
		d.byColumn[key] = len(d.Fields)
		d.Fields = append(d.Fields, Field{
			Name:   sf.Name,
			Column: column,
			Index:  append(append([]int(nil), parent...), i),
			Type:   sf.Type,
		})
	}
	// Promoted fields lose to fields declared on the outer struct.
	for _, sf := range embedded {
		d.collect(sf.Type, append(append([]int(nil), parent...), sf.Index...), overrides, naming, used)
	}
}

// Lookup returns the field mapped to a result column. Matching ignores case
// and underscores, so user_id, userId and USERID find the same field.
func (d *Descriptor) Lookup(column string) (Field, bool) {
	i, ok := d.byColumn[normalizeColumn(column)]
	if !ok {
		return Field{}, false
	}
	return d.Fields[i], true
}

func normalizeColumn(c string) string {
	return strings.ReplaceAll(strings.ToLower(c), "_", "")
}
