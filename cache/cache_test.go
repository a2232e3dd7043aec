package cache

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsDeterministic(t *testing.T) {
	a := url.Values{}
	a.Set("startDate", "2025-01-01")
	a.Set("model", "SXM4")
	b := url.Values{}
	b.Set("model", "SXM4")
	b.Set("startDate", "2025-01-01")

	assert.Equal(t, Key("/api/v1/tpy/daily", a), Key("/api/v1/tpy/daily", b))
	assert.Equal(t, "/api/v1/tpy/daily?model=SXM4&startDate=2025-01-01", Key("/api/v1/tpy/daily", a))
	assert.Equal(t, "/api/v1/tpy/daily", Key("/api/v1/tpy/daily", nil))
}

func TestGetSetClear(t *testing.T) {
	c := New(0)
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", []int{1, 2})
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)

	c.Set("other", 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestTTLCheckedOnRead(t *testing.T) {
	now := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	c := New(5 * time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(4 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(0)
	c.Set("/api/v1/tpy/daily?a=1", 1)
	c.Set("/api/v1/tpy/daily?a=2", 2)
	c.Set("/api/v1/tpy/weekly?a=1", 3)

	n := c.InvalidatePrefix("/api/v1/tpy/daily")
	assert.Equal(t, 2, n)
	_, ok := c.Get("/api/v1/tpy/weekly?a=1")
	assert.True(t, ok)
	assert.Len(t, c.Snapshot(), 1)
}
