package mapping

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// StructMapper maps rows onto a described struct. The column-to-field plan is
// built once per distinct result column list.
type StructMapper struct {
	desc   *Descriptor
	strict bool
	plans  sync.Map // joined column list -> []int
}

// NewStructMapper returns a mapper for desc. With strict set, a result column
// that maps to no field is an error instead of being skipped.
func NewStructMapper(desc *Descriptor, strict bool) *StructMapper {
	return &StructMapper{desc: desc, strict: strict}
}

func (m *StructMapper) Type() reflect.Type { return m.desc.Type }

// Descriptor returns the field mapping used by the mapper.
func (m *StructMapper) Descriptor() *Descriptor { return m.desc }

func (m *StructMapper) plan(cols []string) ([]int, error) {
	key := strings.Join(cols, "\x00")
	if p, ok := m.plans.Load(key); ok {
		return p.([]int), nil
	}

	p := make([]int, len(cols))
	var missing []string
	for i, c := range cols {
		p[i] = -1
		if f, ok := m.desc.byColumn[normalizeColumn(c)]; ok {
			p[i] = f
		} else {
			missing = append(missing, c)
		}
	}
	if m.strict && len(missing) > 0 {
		return nil, fmt.Errorf("columns %s have no matching field in %s", strings.Join(missing, ", "), m.desc.Type)
	}
	m.plans.Store(key, p)
	return p, nil
}

func (m *StructMapper) MapRow(rs RowScanner) (any, error) {
	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	p, err := m.plan(cols)
	if err != nil {
		return nil, err
	}

	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rs.Scan(dest...); err != nil {
		return nil, err
	}

	ptr := m.desc.Type.Kind() == reflect.Pointer
	st := m.desc.Type
	if ptr {
		st = st.Elem()
	}
	out := reflect.New(st)
	elem := out.Elem()
	for i, fi := range p {
		if fi < 0 {
			continue
		}
		f := m.desc.Fields[fi]
		v, err := convertValue(f.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %q into %s.%s: %w", cols[i], st.Name(), f.Name, err)
		}
		elem.FieldByIndex(f.Index).Set(v)
	}
	if ptr {
		return out.Interface(), nil
	}
	return elem.Interface(), nil
}
