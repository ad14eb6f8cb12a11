package planner

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache holds compiled queries keyed by filter text. Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, *CompiledQuery]
}

// NewCache creates a cache bounded to size entries.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, *CompiledQuery](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

func cacheKey(filter string) string { return strings.TrimSpace(filter) }

func (c *Cache) Get(filter string) (*CompiledQuery, bool) {
	return c.entries.Get(cacheKey(filter))
}

func (c *Cache) Add(filter string, q *CompiledQuery) {
	c.entries.Add(cacheKey(filter), q)
}

func (c *Cache) Len() int { return c.entries.Len() }

func (c *Cache) Purge() { c.entries.Purge() }
