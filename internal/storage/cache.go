package storage

import (
	"container/list"
	"sync"

	"github.com/ironsheep/blueprint-parser/internal/raster"
)

// DefaultCachePixels is the pixel budget used when none is configured:
// about 128 MiB of decoded grids.
const DefaultCachePixels = 4 << 20

// GridCache provides thread-safe caching of decoded uploads to avoid
// redundant disk reads and decodes.
//
// # Memory Management
//
// The cache holds at most maxPixels pixels in total; a decoded grid costs 32
// bytes per pixel. When a Put would exceed the budget, the least recently
// used grids are dropped first. A grid larger than the whole budget is never
// cached, and a non-positive budget disables caching.
type GridCache struct {
	mu        sync.Mutex
	maxPixels int
	pixels    int
	order     *list.List // front is most recently used
	entries   map[string]*list.Element
}

type cacheEntry struct {
	id   string
	grid *raster.PixelGrid
}

// NewGridCache creates an empty cache with the given pixel budget.
func NewGridCache(maxPixels int) *GridCache {
	return &GridCache{
		maxPixels: maxPixels,
		order:     list.New(),
		entries:   make(map[string]*list.Element),
	}
}

// Get returns the cached grid for id, if any, and marks it as recently used.
func (c *GridCache) Get(id string) (*raster.PixelGrid, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).grid, true
}

// Put stores grid under id, replacing any previous entry, then evicts least
// recently used grids until the cache fits its budget.
func (c *GridCache) Put(id string, grid *raster.PixelGrid) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(id)
	if grid.Len() > c.maxPixels {
		return
	}

	c.entries[id] = c.order.PushFront(&cacheEntry{id: id, grid: grid})
	c.pixels += grid.Len()
	for c.pixels > c.maxPixels {
		c.remove(c.order.Back().Value.(*cacheEntry).id)
	}
}

// Evict removes a specific grid from the cache.
// If id is not cached, this method does nothing.
func (c *GridCache) Evict(id string) {
	c.mu.Lock()
	c.remove(id)
	c.mu.Unlock()
}

// Clear removes all grids from the cache.
func (c *GridCache) Clear() {
	c.mu.Lock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.pixels = 0
	c.mu.Unlock()
}

// Len returns the number of cached grids.
func (c *GridCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Pixels returns the total pixel count of the cached grids.
func (c *GridCache) Pixels() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pixels
}

// remove drops id; c.mu must be held.
func (c *GridCache) remove(id string) {
	el, ok := c.entries[id]
	if !ok {
		return
	}
	c.pixels -= el.Value.(*cacheEntry).grid.Len()
	c.order.Remove(el)
	delete(c.entries, id)
}
