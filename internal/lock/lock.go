// Package lock provides the per-ticket in-flight guard used by the transition
// engine: while one lifecycle write for a ticket is pending, a second request
// for the same ticket fails fast instead of racing it.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned by Acquire when the key is already held.
var ErrHeld = errors.New("lock is held")

// MemoryGuard keeps held keys in process memory. It is used when no Redis is
// configured and in tests.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, ErrHeld
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently held.
func (g *MemoryGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}
