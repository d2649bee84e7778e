package cli

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Konsultn-Engineering/sqlmap/page"
)

// row is the generic result row of explain.
type row = map[string]any

var baseTypes = map[string]reflect.Type{
	"int":     reflect.TypeFor[int](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint64":  reflect.TypeFor[uint64](),
	"float64": reflect.TypeFor[float64](),
	"string":  reflect.TypeFor[string](),
	"bool":    reflect.TypeFor[bool](),
	"bytes":   reflect.TypeFor[[]byte](),
	"time":    reflect.TypeFor[time.Time](),
	"row":     reflect.TypeFor[row](),
	"page":    page.Type,
}

// parseType reads the type names accepted by --param and --returns:
//
//	int string bool time row page ...   base types
//	[]T  [N]T  *T  set[T]               composites
//	paged                               a page of rows
func parseType(s string) (reflect.Type, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty type")
	case s == "paged":
		return reflect.TypeFor[page.Result[row]](), nil
	case strings.HasPrefix(s, "[]"):
		elem, err := parseType(s[2:])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case strings.HasPrefix(s, "["):
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil, fmt.Errorf("unterminated array type %q", s)
		}
		n, err := strconv.Atoi(s[1:end])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid array length in %q", s)
		}
		elem, err := parseType(s[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(n, elem), nil
	case strings.HasPrefix(s, "*"):
		elem, err := parseType(s[1:])
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	case strings.HasPrefix(s, "set[") && strings.HasSuffix(s, "]"):
		elem, err := parseType(s[4 : len(s)-1])
		if err != nil {
			return nil, err
		}
		if !elem.Comparable() {
			return nil, fmt.Errorf("set element %s is not comparable", elem)
		}
		return reflect.MapOf(elem, reflect.TypeFor[struct{}]()), nil
	}
	if t, ok := baseTypes[s]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", s)
}

// decodeArgs decodes a JSON array into one value per type.
func decodeArgs(raw string, types []reflect.Type) ([]any, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("args must be a JSON array: %w", err)
	}
	if len(items) != len(types) {
		return nil, fmt.Errorf("got %d args for %d parameters", len(items), len(types))
	}
	out := make([]any, len(items))
	for i, item := range items {
		v := reflect.New(types[i])
		if err := json.Unmarshal(item, v.Interface()); err != nil {
			return nil, fmt.Errorf("arg %d as %s: %w", i+1, types[i], err)
		}
		out[i] = v.Elem().Interface()
	}
	return out, nil
}
