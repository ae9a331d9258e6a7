package jobloader

import (
	"sync"

	"github.com/chazu/jobgraph/pkg/graph"
)

// Cache provides thread-safe caching of decoded job graphs.
// Graphs are immutable, so cached values are shared between callers.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*graph.Graph
}

// NewCache creates a new cache instance
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]*graph.Graph),
	}
}

// Get retrieves a graph from the cache
// Returns the graph and true if found, nil and false otherwise
func (c *Cache) Get(key string) (*graph.Graph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, found := c.items[key]
	return g, found
}

// Set stores a graph in the cache
func (c *Cache) Set(key string, g *graph.Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = g
}

// Delete removes a graph from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all graphs from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*graph.Graph)
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}
