package sharding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModTable(t *testing.T) {
	s, err := NewModTable(4)
	require.NoError(t, err)

	got, err := s.Table("orders", int64(10))
	require.NoError(t, err)
	assert.Equal(t, "orders_2", got)

	got, err = s.Table("orders", "7")
	require.NoError(t, err)
	assert.Equal(t, "orders_3", got)

	_, err = s.Table("orders", 1.5)
	assert.Error(t, err)

	_, err = NewModTable(0)
	assert.Error(t, err)
}

func TestHashStrategiesAreDeterministic(t *testing.T) {
	ht, err := NewHashTable(8)
	require.NoError(t, err)
	a, err := ht.Table("users", "alice")
	require.NoError(t, err)
	b, err := ht.Table("users", "alice")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	hs, err := NewHashStore("db0", "db1", "db2")
	require.NoError(t, err)
	s1, err := hs.Store("alice")
	require.NoError(t, err)
	s2, err := hs.Store("alice")
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Contains(t, []string{"db0", "db1", "db2"}, s1)

	_, err = hs.Store(nil)
	assert.Error(t, err)
}

func TestModStore(t *testing.T) {
	s, err := NewModStore("a", "b")
	require.NoError(t, err)
	got, err := s.Store(uint32(3))
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	_, err = NewModStore()
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	ts, err := NewTable("mod", map[string]any{"shards": 2})
	require.NoError(t, err)
	got, err := ts.Table("t", 5)
	require.NoError(t, err)
	assert.Equal(t, "t_1", got)

	ss, err := NewStore("hash", map[string]any{"stores": []any{"x", "y"}})
	require.NoError(t, err)
	_, err = ss.Store(12)
	require.NoError(t, err)

	_, err = NewTable("range", nil)
	var unknown *UnknownStrategyError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Available, "mod")

	_, err = NewStore("mod", map[string]any{})
	assert.Error(t, err)
}

func TestFuncAdapters(t *testing.T) {
	var ts TableStrategy = TableFunc(func(table string, key any) (string, error) {
		return table + "_x", nil
	})
	got, err := ts.Table("t", 1)
	require.NoError(t, err)
	assert.Equal(t, "t_x", got)

	var ss StoreStrategy = StoreFunc(func(any) (string, error) { return "only", nil })
	got, err = ss.Store(nil)
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}
