// Package guard tracks operations that are in flight so a re-entrant call for
// the same key can be rejected instead of being applied twice.
package guard

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard records in-flight keys.
type Guard interface {
	// Enter atomically marks key as in flight. It returns false when key is
	// already in flight, in which case the caller must not proceed.
	Enter(ctx context.Context, key string) bool

	// Leave clears key. Leaving a key that is not in flight is a no-op.
	Leave(ctx context.Context, key string)

	// Size returns the number of keys currently in flight.
	Size() int64
}

// inFlight implements Guard with a mutex-protected set.
type inFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
	size atomic.Int64
}

// New creates an empty in-memory guard.
func New() Guard {
	return &inFlight{keys: make(map[string]struct{})}
}

func (g *inFlight) Enter(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.keys[key]; busy {
		return false
	}
	g.keys[key] = struct{}{}
	g.size.Add(1)
	return true
}

func (g *inFlight) Leave(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.keys[key]; busy {
		delete(g.keys, key)
		g.size.Add(-1)
	}
}

func (g *inFlight) Size() int64 {
	return g.size.Load()
}
