package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetOrAdd(t *testing.T) {
	c, err := NewLRU[uint64, string](4, nil)
	require.NoError(t, err)

	var builds atomic.Int32
	build := func() (string, error) {
		builds.Add(1)
		return "compiled", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrAdd(42, build)
			assert.NoError(t, err)
			assert.Equal(t, "compiled", v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	assert.Equal(t, 1, c.Len())
}

func TestLRU_FailedBuildIsNotCached(t *testing.T) {
	c, err := NewLRU[string, int](4, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = c.GetOrAdd("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get("k")
	assert.False(t, ok)

	v, err := c.GetOrAdd("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestLRU_Eviction(t *testing.T) {
	var evicted []int
	c, err := NewLRU[int, int](2, func(k, _ int) { evicted = append(evicted, k) })
	require.NoError(t, err)

	c.Add(1, 1)
	c.Add(2, 2)
	c.Add(3, 3)
	assert.Equal(t, []int{1}, evicted)

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.ElementsMatch(t, []int{1, 2, 3}, evicted)
}
