package cache_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface/pkg/cache"
	"github.com/sandrolain/gosurface/pkg/parser"
	"github.com/sandrolain/gosurface/pkg/types"
)

func TestCacheGetSet(t *testing.T) {
	c := cache.New(2)
	expr := parser.MustCompile("x + y")

	_, ok := c.Get("x + y")
	assert.False(t, ok)

	c.Set("x + y", expr)
	got, ok := c.Get("x + y")
	require.True(t, ok)
	assert.Same(t, expr, got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheEviction(t *testing.T) {
	c := cache.New(2)
	c.Set("a", parser.MustCompile("a"))
	c.Set("b", parser.MustCompile("b"))

	// Touch a so that b becomes the least recently used entry.
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("c", parser.MustCompile("c"))

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Len)
	assert.Equal(t, 2, stats.Capacity)
}

func TestCacheDefaultCapacity(t *testing.T) {
	assert.Equal(t, cache.DefaultCapacity, cache.New(0).Capacity())
	assert.Equal(t, cache.DefaultCapacity, cache.New(-3).Capacity())
}

func TestGetOrCompile(t *testing.T) {
	c := cache.New(8)
	calls := 0
	compile := func() (*types.Expression, error) {
		calls++
		return parser.Compile("sin(x)")
	}

	first, err := c.GetOrCompile("sin(x)", compile)
	require.NoError(t, err)
	second, err := c.GetOrCompile("sin(x)", compile)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestGetOrCompileErrorsNotCached(t *testing.T) {
	c := cache.New(8)
	calls := 0
	boom := errors.New("boom")
	compile := func() (*types.Expression, error) {
		calls++
		return nil, boom
	}

	for i := 0; i < 3; i++ {
		_, err := c.GetOrCompile("x +", compile)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, c.Len())
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := cache.New(4)
	c.Set("a", parser.MustCompile("a"))
	c.Set("b", parser.MustCompile("b"))

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, cache.Stats{Capacity: 4}, c.Stats())
}

func TestCacheConcurrent(t *testing.T) {
	c := cache.New(16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("x + %d", (g*i)%32)
				_, err := c.GetOrCompile(key, func() (*types.Expression, error) {
					return parser.Compile(key)
				})
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
