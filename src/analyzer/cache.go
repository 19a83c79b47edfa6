package analyzer

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache keeps recent analyses keyed by document version and shader defs.
// A miss re-analyzes, so results never depend on what the cache retained.
type Cache struct {
	c *ristretto.Cache[string, *Analysis]
}

// NewCache creates a cache holding roughly maxCostBytes of source text
func NewCache(maxCostBytes int64) (*Cache, error) {
	if maxCostBytes <= 0 {
		return &Cache{}, nil
	}
	counters := maxCostBytes / 100 * 10
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *Analysis]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	return &Cache{c: c}, nil
}

func cacheKey(uri string, version int32, defs map[string]bool) string {
	return fmt.Sprintf("%s@%d#%s", uri, version, strings.Join(sortedDefs(defs), ","))
}

// Analyze returns the cached analysis of (uri, version, defs) or computes and
// stores it.
func (c *Cache) Analyze(uri string, version int32, src string, defs map[string]bool) *Analysis {
	if c == nil || c.c == nil {
		return Analyze(uri, version, src, defs)
	}
	key := cacheKey(uri, version, defs)
	if a, ok := c.c.Get(key); ok && a.Pre.Source == src {
		return a
	}
	a := Analyze(uri, version, src, defs)
	c.c.Set(key, a, int64(len(src))+1)
	return a
}

// Wait blocks until buffered writes are applied
func (c *Cache) Wait() {
	if c != nil && c.c != nil {
		c.c.Wait()
	}
}

// Close releases the cache
func (c *Cache) Close() {
	if c != nil && c.c != nil {
		c.c.Close()
	}
}
