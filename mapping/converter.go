package mapping

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ConvertFunc converts a raw driver value into T. It is never called with nil.
type ConvertFunc[T any] func(value any) (T, error)

var (
	converterMu sync.RWMutex
	converters  = map[reflect.Type]func(any) (any, error){}

	scannerType = reflect.TypeFor[sql.Scanner]()
)

// RegisterConverter registers the scalar conversion for T. Types with a
// converter are mapped from a single column instead of field by field.
func RegisterConverter[T any](fn ConvertFunc[T]) {
	converterMu.Lock()
	defer converterMu.Unlock()
	converters[reflect.TypeFor[T]()] = func(v any) (any, error) { return fn(v) }
}

// HasConverter reports whether t (or *t's element) is scalar-convertible:
// registered explicitly, a basic kind, or a sql.Scanner.
func HasConverter(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	converterMu.RLock()
	_, ok := converters[t]
	converterMu.RUnlock()
	if ok {
		return true
	}
	if reflect.PointerTo(t).Implements(scannerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Convert converts a raw driver value into a value of type t. Nil becomes the
// zero value of t (a nil pointer for pointer types).
func Convert(t reflect.Type, value any) (any, error) {
	v, err := convertValue(t, value)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func convertValue(t reflect.Type, value any) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer {
		if value == nil {
			return reflect.Zero(t), nil
		}
		elem, err := convertValue(t.Elem(), value)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	converterMu.RLock()
	fn, ok := converters[t]
	converterMu.RUnlock()
	if ok {
		if value == nil {
			return reflect.Zero(t), nil
		}
		out, err := fn(value)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(out), nil
	}

	if reflect.PointerTo(t).Implements(scannerType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(sql.Scanner).Scan(value); err != nil {
			return reflect.Value{}, fmt.Errorf("scan %T into %s: %w", value, t, err)
		}
		return ptr.Elem(), nil
	}

	if value == nil {
		return reflect.Zero(t), nil
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(t) {
		return src, nil
	}

	// Named basic kinds (type Status string) go through their underlying converter.
	if base := basicType(t.Kind()); base != nil && base != t {
		converterMu.RLock()
		fn, ok := converters[base]
		converterMu.RUnlock()
		if ok {
			out, err := fn(value)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(out).Convert(t), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", value, t)
}

func basicType(k reflect.Kind) reflect.Type {
	switch k {
	case reflect.String:
		return reflect.TypeFor[string]()
	case reflect.Bool:
		return reflect.TypeFor[bool]()
	case reflect.Int:
		return reflect.TypeFor[int]()
	case reflect.Int8:
		return reflect.TypeFor[int8]()
	case reflect.Int16:
		return reflect.TypeFor[int16]()
	case reflect.Int32:
		return reflect.TypeFor[int32]()
	case reflect.Int64:
		return reflect.TypeFor[int64]()
	case reflect.Uint:
		return reflect.TypeFor[uint]()
	case reflect.Uint8:
		return reflect.TypeFor[uint8]()
	case reflect.Uint16:
		return reflect.TypeFor[uint16]()
	case reflect.Uint32:
		return reflect.TypeFor[uint32]()
	case reflect.Uint64:
		return reflect.TypeFor[uint64]()
	case reflect.Float32:
		return reflect.TypeFor[float32]()
	case reflect.Float64:
		return reflect.TypeFor[float64]()
	}
	return nil
}

// ===================
// Built-in converters
// ===================

func init() {
	RegisterConverter(toString)
	RegisterConverter(toBool)
	RegisterConverter(toInt64)
	RegisterConverter(intConverter[int](strconv.IntSize))
	RegisterConverter(intConverter[int8](8))
	RegisterConverter(intConverter[int16](16))
	RegisterConverter(intConverter[int32](32))
	RegisterConverter(toUint64)
	RegisterConverter(uintConverter[uint](strconv.IntSize))
	RegisterConverter(uintConverter[uint8](8))
	RegisterConverter(uintConverter[uint16](16))
	RegisterConverter(uintConverter[uint32](32))
	RegisterConverter(toFloat64)
	RegisterConverter(func(v any) (float32, error) {
		f, err := toFloat64(v)
		return float32(f), err
	})
	RegisterConverter(toTime)
	RegisterConverter(toBytes)
	RegisterConverter(func(v any) (json.RawMessage, error) {
		b, err := toBytes(v)
		return json.RawMessage(b), err
	})
	RegisterConverter(toUUID)
	RegisterConverter(toULID)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return fmt.Sprint(v), nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case string:
		return strconv.ParseBool(x)
	case []byte:
		return strconv.ParseBool(string(x))
	}
	if n, err := toInt64(v); err == nil {
		return n != 0, nil
	}
	return false, fmt.Errorf("cannot convert %T to bool", v)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint64:
		if x > 1<<63-1 {
			return 0, fmt.Errorf("uint64 %d too large for int64", x)
		}
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint:
		return int64(x), nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("cannot convert %v to int64: precision loss", x)
		}
		return int64(x), nil
	case float32:
		return toInt64(float64(x))
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to int64", v)
}

func intConverter[T ~int | ~int8 | ~int16 | ~int32](bits int) ConvertFunc[T] {
	return func(v any) (T, error) {
		n, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if bits < 64 && (n < -(1<<(bits-1)) || n > 1<<(bits-1)-1) {
			return 0, fmt.Errorf("value %d overflows int%d", n, bits)
		}
		return T(n), nil
	}
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case string:
		return strconv.ParseUint(x, 10, 64)
	case []byte:
		return strconv.ParseUint(string(x), 10, 64)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to uint64", v)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d cannot convert to uint64", n)
	}
	return uint64(n), nil
}

func uintConverter[T ~uint | ~uint8 | ~uint16 | ~uint32](bits int) ConvertFunc[T] {
	return func(v any) (T, error) {
		n, err := toUint64(v)
		if err != nil {
			return 0, err
		}
		if bits < 64 && n > 1<<bits-1 {
			return 0, fmt.Errorf("value %d overflows uint%d", n, bits)
		}
		return T(n), nil
	}
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
	return float64(n), nil
}

// timeLayouts are tried in order for textual timestamps (sqlite stores text).
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case []byte:
		return toTime(string(x))
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", x)
	case int64:
		return time.Unix(x, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", v)
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return append([]byte(nil), x...), nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("cannot convert %T to []byte", v)
}

func toUUID(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case string:
		return uuid.Parse(x)
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		return uuid.ParseBytes(x)
	}
	return uuid.Nil, fmt.Errorf("cannot convert %T to uuid.UUID", v)
}

func toULID(v any) (ulid.ULID, error) {
	switch x := v.(type) {
	case ulid.ULID:
		return x, nil
	case string:
		return ulid.Parse(x)
	case []byte:
		var id ulid.ULID
		if len(x) == len(id) {
			copy(id[:], x)
			return id, nil
		}
		return ulid.Parse(string(x))
	}
	return ulid.ULID{}, fmt.Errorf("cannot convert %T to ulid.ULID", v)
}
