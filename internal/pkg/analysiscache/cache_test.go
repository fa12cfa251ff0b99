package analysiscache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("risk", "db-1", "v1")
	assert.False(t, ok)

	c.Set("risk", "db-1", "v1", 42)
	got, ok := c.Get("risk", "db-1", "v1")
	assert.True(t, ok)
	assert.Equal(t, 42, got)

	// Different op, resource or version are distinct keys.
	_, ok = c.Get("blast", "db-1", "v1")
	assert.False(t, ok)
	_, ok = c.Get("risk", "db-2", "v1")
	assert.False(t, ok)
	_, ok = c.Get("risk", "db-1", "v2")
	assert.False(t, ok)
}

func TestZeroTTLDisablesCache(t *testing.T) {
	c := New(0)
	c.Set("risk", "db-1", "v1", 42)
	_, ok := c.Get("risk", "db-1", "v1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("risk", "db-1", "v1", 42)

	_, ok := c.Get("risk", "db-1", "v1")
	assert.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = c.Get("risk", "db-1", "v1")
	assert.False(t, ok)
}

func TestInvalidateResource(t *testing.T) {
	c := New(time.Minute)
	c.Set("risk", "db-1", "v1", 1)
	c.Set("blast", "db-1", "v1", 2)
	c.Set("risk", "api-1", "v1", 3)

	c.InvalidateResource("db-1")

	_, ok := c.Get("risk", "db-1", "v1")
	assert.False(t, ok)
	_, ok = c.Get("blast", "db-1", "v1")
	assert.False(t, ok)
	got, ok := c.Get("risk", "api-1", "v1")
	assert.True(t, ok)
	assert.Equal(t, 3, got)
}

func TestInvalidateAll(t *testing.T) {
	c := New(time.Minute)
	c.Set("risk", "db-1", "v1", 1)
	c.Set("spofScan", "", "v1", 2)

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

func TestNilValueNotStored(t *testing.T) {
	c := New(time.Minute)
	c.Set("risk", "db-1", "v1", nil)
	_, ok := c.Get("risk", "db-1", "v1")
	assert.False(t, ok)
}
