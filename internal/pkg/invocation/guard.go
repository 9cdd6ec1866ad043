// Package invocation tracks the logical identity of the current entry point so
// per-process caches are not served across unrelated invocations of a reused process.
package invocation

import (
	"context"
	"sync"
)

type ctxKey struct{}

// WithID returns a context carrying the invocation identity.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the invocation identity, or "" when none was attached.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Flusher is any cache that can drop all of its entries. *cache.Cache from
// github.com/patrickmn/go-cache satisfies it.
type Flusher interface {
	Flush()
}

// Guard clears every registered cache when a new invocation starts.
type Guard struct {
	mu     sync.Mutex
	lastID string
	caches []Flusher
}

func NewGuard(caches ...Flusher) *Guard {
	return &Guard{caches: caches}
}

// Register adds caches that must be flushed on every new invocation.
func (g *Guard) Register(caches ...Flusher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.caches = append(g.caches, caches...)
}

// ClearIfNewInvocation flushes all caches unless id matches the last seen identity.
// An empty id always clears. Returns true when the caches were flushed.
func (g *Guard) ClearIfNewInvocation(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id != "" && id == g.lastID {
		return false
	}
	for _, c := range g.caches {
		c.Flush()
	}
	g.lastID = id
	return true
}
