// Package cache provides the process-scoped table cache used by the dataset loader.
//
// A Cache memoizes parsed tables by cleaned file path and field delimiter. An
// entry is written at most once: concurrent first loads of the same key share
// a single parse, and later loads return the stored *table.Table. Entries are
// never evicted; a Cache lives as long as the process (or the test) that
// created it.
package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/TheUndivideProject/Prototype-1/internal/metrics"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// LoadFunc parses the file at path.
type LoadFunc func(ctx context.Context, path string) (*table.Table, error)

// Cache is a (path, delimiter) -> Table cache. The zero value is not usable; call New.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*table.Table
	group   singleflight.Group
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*table.Table)}
}

// Key normalizes a path and delimiter to a cache key. Comma-delimited files
// key on the path alone.
func Key(path string, delimiter rune) string {
	p, err := filepath.Abs(path)
	if err != nil {
		p = filepath.Clean(path)
	}
	if delimiter == ',' || delimiter == 0 {
		return p
	}
	return fmt.Sprintf("%s [%q]", p, delimiter)
}

// Get returns the cached table for path read with delimiter, if present.
func (c *Cache) Get(path string, delimiter rune) (*table.Table, bool) {
	return c.lookup(Key(path, delimiter))
}

func (c *Cache) lookup(key string) (*table.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[key]
	return t, ok
}

// GetOrLoad returns the cached table for path read with delimiter, calling
// load on a miss. Failed loads are not cached, so a file that appears later
// can still load.
//
// The shared load runs detached from any one caller's cancellation. A caller
// whose ctx ends stops waiting and gets ctx.Err(); the others still receive
// the table.
func (c *Cache) GetOrLoad(ctx context.Context, path string, delimiter rune, load LoadFunc) (*table.Table, bool, error) {
	key := Key(path, delimiter)
	if t, ok := c.lookup(key); ok {
		metrics.CacheHits.Inc()
		return t, true, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A concurrent caller may have stored the entry while we waited.
		if t, ok := c.lookup(key); ok {
			return t, nil
		}
		metrics.CacheMisses.Inc()
		t, err := load(shared, path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = t
		c.mu.Unlock()
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*table.Table), false, nil
	}
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Paths returns the cached keys.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}
