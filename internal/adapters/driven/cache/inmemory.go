package cache

import (
	"sync"

	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// InMemoryStubCache is the process-wide stub to publication id cache.
// Entries are added once discovered and live for the lifetime of the
// process; there is no eviction. Safe for concurrent use.
type InMemoryStubCache struct {
	mu    sync.RWMutex
	stubs map[string]int
}

// NewInMemoryStubCache creates an empty stub cache.
func NewInMemoryStubCache() *InMemoryStubCache {
	return &InMemoryStubCache{
		stubs: make(map[string]int),
	}
}

// Get returns the cached publication id for a stub.
func (c *InMemoryStubCache) Get(stub string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.stubs[stub]
	return id, ok
}

// Put records a discovered publication id for a stub. Racing writes for
// the same stub carry the same id, so last-writer-wins is fine.
func (c *InMemoryStubCache) Put(stub string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stubs[stub] = id
}

// Len returns the number of cached stubs.
func (c *InMemoryStubCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stubs)
}

// Ensure InMemoryStubCache implements ports.StubCache
var _ ports.StubCache = (*InMemoryStubCache)(nil)
