package sharding

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

func init() {
	RegisterTable("mod", func(p map[string]any) (TableStrategy, error) {
		n, err := intParam(p, "shards")
		if err != nil {
			return nil, err
		}
		return NewModTable(n)
	})
	RegisterTable("hash", func(p map[string]any) (TableStrategy, error) {
		n, err := intParam(p, "shards")
		if err != nil {
			return nil, err
		}
		return NewHashTable(n)
	})
	RegisterStore("mod", func(p map[string]any) (StoreStrategy, error) {
		stores, err := stringsParam(p, "stores")
		if err != nil {
			return nil, err
		}
		return NewModStore(stores...)
	})
	RegisterStore("hash", func(p map[string]any) (StoreStrategy, error) {
		stores, err := stringsParam(p, "stores")
		if err != nil {
			return nil, err
		}
		return NewHashStore(stores...)
	})
}

// ModTable routes integer keys to "<table>_<key mod shards>".
type ModTable struct {
	shards uint64
}

func NewModTable(shards int) (*ModTable, error) {
	if shards <= 0 {
		return nil, fmt.Errorf("mod table strategy: shards must be positive, got %d", shards)
	}
	return &ModTable{shards: uint64(shards)}, nil
}

func (m *ModTable) Table(table string, key any) (string, error) {
	n, err := Number(key)
	if err != nil {
		return "", err
	}
	return table + "_" + strconv.FormatUint(n%m.shards, 10), nil
}

// HashTable routes any key to "<table>_<xxhash(key) mod shards>".
type HashTable struct {
	shards uint64
}

func NewHashTable(shards int) (*HashTable, error) {
	if shards <= 0 {
		return nil, fmt.Errorf("hash table strategy: shards must be positive, got %d", shards)
	}
	return &HashTable{shards: uint64(shards)}, nil
}

func (h *HashTable) Table(table string, key any) (string, error) {
	if key == nil {
		return "", fmt.Errorf("hash table strategy: nil shard key")
	}
	return table + "_" + strconv.FormatUint(Hash(key)%h.shards, 10), nil
}

// ModStore routes integer keys to stores[key mod len(stores)].
type ModStore struct {
	stores []string
}

func NewModStore(stores ...string) (*ModStore, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("mod store strategy: no stores configured")
	}
	return &ModStore{stores: stores}, nil
}

func (m *ModStore) Store(key any) (string, error) {
	n, err := Number(key)
	if err != nil {
		return "", err
	}
	return m.stores[n%uint64(len(m.stores))], nil
}

// HashStore routes any key to stores[xxhash(key) mod len(stores)].
type HashStore struct {
	stores []string
}

func NewHashStore(stores ...string) (*HashStore, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("hash store strategy: no stores configured")
	}
	return &HashStore{stores: stores}, nil
}

func (h *HashStore) Store(key any) (string, error) {
	if key == nil {
		return "", fmt.Errorf("hash store strategy: nil shard key")
	}
	return h.stores[Hash(key)%uint64(len(h.stores))], nil
}

// Hash returns the xxhash of the key's canonical string form.
func Hash(key any) uint64 {
	switch v := key.(type) {
	case string:
		return xxhash.Sum64String(v)
	case []byte:
		return xxhash.Sum64(v)
	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		return xxhash.Sum64String(fmt.Sprint(v))
	}
}

// Number converts integer-like keys (including numeric strings) to uint64.
func Number(key any) (uint64, error) {
	switch v := key.(type) {
	case int:
		return uint64(v), nil
	case int8:
		return uint64(v), nil
	case int16:
		return uint64(v), nil
	case int32:
		return uint64(v), nil
	case int64:
		return uint64(v), nil
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("shard key %q is not numeric: %w", v, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unexpected type for shard key %v: %T", key, key)
}

func intParam(p map[string]any, name string) (int, error) {
	switch v := p[name].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	case nil:
		return 0, fmt.Errorf("missing parameter %q", name)
	default:
		return 0, fmt.Errorf("parameter %q: unexpected type %T", name, v)
	}
}

func stringsParam(p map[string]any, name string) ([]string, error) {
	switch v := p[name].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, fmt.Sprint(s))
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("missing parameter %q", name)
	default:
		return nil, fmt.Errorf("parameter %q: unexpected type %T", name, v)
	}
}
