package room

import (
	"sync"

	"github.com/bluele/gcache"
)

const (
	// DefaultRegistrySize bounds how many rooms are kept live. Rooms are
	// created lazily and never torn down explicitly; the LRU is the leak
	// boundary for long-running processes.
	DefaultRegistrySize = 512
)

// Registry hands out rooms by key with get-or-create semantics. Each room
// owns its own lock, history and throttle map; no cross-room shared state.
type Registry struct {
	mu         sync.Mutex
	cache      gcache.Cache
	maxHistory int
}

// NewRegistry creates a registry with the default room capacity.
func NewRegistry() *Registry {
	return NewRegistryWithSize(DefaultRegistrySize, DefaultMaxHistory)
}

// NewRegistryWithSize creates a registry with custom capacity and per-room
// history bound.
func NewRegistryWithSize(size, maxHistory int) *Registry {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	return &Registry{
		cache:      gcache.New(size).LRU().Build(),
		maxHistory: maxHistory,
	}
}

// Get returns the room for key, creating it on first reference.
func (g *Registry) Get(key string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, err := g.cache.Get(key); err == nil {
		return v.(*Room)
	}
	r := NewWithBound(key, g.maxHistory)
	g.cache.Set(key, r)
	return r
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	return g.cache.Len(true)
}
