package invocation

import (
	"context"
	"testing"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
)

type countingFlusher struct{ n int }

func (c *countingFlusher) Flush() { c.n++ }

func TestClearIfNewInvocation_SameIDClearsOnce(t *testing.T) {
	f := &countingFlusher{}
	g := NewGuard(f)

	assert.True(t, g.ClearIfNewInvocation("req-1"))
	assert.False(t, g.ClearIfNewInvocation("req-1"))
	assert.Equal(t, 1, f.n)
}

func TestClearIfNewInvocation_DifferentIDsClearTwice(t *testing.T) {
	f := &countingFlusher{}
	g := NewGuard(f)

	assert.True(t, g.ClearIfNewInvocation("req-1"))
	assert.True(t, g.ClearIfNewInvocation("req-2"))
	assert.Equal(t, 2, f.n)
}

func TestClearIfNewInvocation_EmptyIDAlwaysClears(t *testing.T) {
	f := &countingFlusher{}
	g := NewGuard(f)

	assert.True(t, g.ClearIfNewInvocation(""))
	assert.True(t, g.ClearIfNewInvocation(""))
	assert.Equal(t, 2, f.n)
}

func TestClearIfNewInvocation_FlushesGoCache(t *testing.T) {
	c := cache.New(cache.NoExpiration, 0)
	g := NewGuard()
	g.Register(c)

	g.ClearIfNewInvocation("a")
	c.Set("user:1", "alice", cache.DefaultExpiration)

	g.ClearIfNewInvocation("a")
	_, ok := c.Get("user:1")
	assert.True(t, ok, "same invocation keeps cached lookups")

	g.ClearIfNewInvocation("b")
	_, ok = c.Get("user:1")
	assert.False(t, ok, "new invocation drops stale lookups")
}

func TestContextRoundTrip(t *testing.T) {
	assert.Equal(t, "", FromContext(context.Background()))
	assert.Equal(t, "x", FromContext(WithID(context.Background(), "x")))
}
