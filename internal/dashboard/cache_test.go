package dashboard

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunardrift/neo-tracker/internal/adapter/sqlite"
)

func cachedResult(value string) *sqlite.QueryResult {
	return &sqlite.QueryResult{
		Columns: []string{"value"},
		Rows:    [][]any{{value}},
	}
}

func TestQueryCache_GetPut(t *testing.T) {
	c := newQueryCache(3, time.Minute)

	_, ok := c.get("a")
	assert.False(t, ok)

	c.put("a", cachedResult("one"))
	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "one", got.Rows[0][0])
}

func TestQueryCache_Overwrite(t *testing.T) {
	c := newQueryCache(3, time.Minute)

	c.put("a", cachedResult("one"))
	c.put("a", cachedResult("two"))

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "two", got.Rows[0][0])
}

func TestQueryCache_EvictsOldest(t *testing.T) {
	c := newQueryCache(2, time.Minute)

	c.put("a", cachedResult("one"))
	c.put("b", cachedResult("two"))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", cachedResult("three"))

	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestQueryCache_TTLExpiry(t *testing.T) {
	c := newQueryCache(3, 10*time.Millisecond)

	c.put("a", cachedResult("one"))
	time.Sleep(20 * time.Millisecond)

	_, ok := c.get("a")
	assert.False(t, ok, "expired entry should miss")
}

func TestQueryCache_CapacityBound(t *testing.T) {
	c := newQueryCache(4, time.Minute)

	for i := 0; i < 20; i++ {
		c.put("query-"+strconv.Itoa(i), cachedResult(strconv.Itoa(i)))
	}
	assert.LessOrEqual(t, c.order.Len(), 4)
	assert.LessOrEqual(t, len(c.entries), 4)
}
