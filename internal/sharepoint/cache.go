package sharepoint

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/MrJamesThe3rd/gastos/internal/graph"
)

// Cache holds metadata derived from the remote store for one signed-in session:
// the site id, list ids by display name, column descriptors and resolved columns
// per list, plus the lookup indexes built from reference lists.
//
// A Cache is created when a session starts and dropped with Discard when it ends.
// Site and list ids are never invalidated while the session lives.
type Cache struct {
	mu       sync.RWMutex
	siteID   string
	lists    map[string]string
	drives   map[string]string
	columns  map[string][]graph.Column
	resolved map[string]Column
	indexes  map[string]*lookupIndex

	group singleflight.Group
}

// share runs fn once per key for all concurrent callers. fn is not cancelled
// when ctx is; a caller whose ctx ends stops waiting and gets ctx.Err().
func (c *Cache) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)

	select {
	case r := <-c.group.DoChan(key, func() (any, error) { return fn(detached) }):
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func NewCache() *Cache {
	c := &Cache{}
	c.reset()

	return c
}

// Discard forgets everything. It is the only invalidation path for the site id.
func (c *Cache) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
}

func (c *Cache) reset() {
	c.siteID = ""
	c.lists = make(map[string]string)
	c.drives = make(map[string]string)
	c.columns = make(map[string][]graph.Column)
	c.resolved = make(map[string]Column)
	c.indexes = make(map[string]*lookupIndex)
}

func (c *Cache) site() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.siteID, c.siteID != ""
}

func (c *Cache) setSite(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.siteID = id
}

func (c *Cache) list(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.lists[name]

	return id, ok
}

func (c *Cache) setList(name, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lists[name] = id
}

func (c *Cache) drive(listID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.drives[listID]

	return id, ok
}

func (c *Cache) setDrive(listID, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drives[listID] = id
}

func (c *Cache) listColumns(listID string) ([]graph.Column, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cols, ok := c.columns[listID]

	return cols, ok
}

func (c *Cache) setListColumns(listID string, cols []graph.Column) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.columns[listID] = cols
}

func (c *Cache) resolvedColumn(key string) (Column, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	col, ok := c.resolved[key]

	return col, ok
}

func (c *Cache) setResolvedColumn(key string, col Column) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resolved[key] = col
}

// forgetColumns drops descriptors and resolutions for a list after the store
// rejected a write, so the next operation re-reads the schema.
func (c *Cache) forgetColumns(listID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.columns, listID)

	prefix := listID + keySep
	for k := range c.resolved {
		if strings.HasPrefix(k, prefix) {
			delete(c.resolved, k)
		}
	}
}

func (c *Cache) index(key string) (*lookupIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.indexes[key]

	return idx, ok
}

func (c *Cache) setIndex(key string, idx *lookupIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.indexes[key] = idx
}

// invalidateIndexes drops every lookup index built from listID.
func (c *Cache) invalidateIndexes(listID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := listID + keySep
	for k := range c.indexes {
		if strings.HasPrefix(k, prefix) {
			delete(c.indexes, k)
		}
	}
}

const keySep = "\x00"

func cacheKey(parts ...string) string {
	return strings.Join(parts, keySep)
}
