package session

import (
	"context"
	"sync"

	"github.com/rowanharker/tabgrid/internal/models"
)

// PKCache caches primary-key column names per table for the lifetime of a
// connection. Two sessions racing to populate the same key is harmless:
// values derive from the same catalog, so last write wins.
type PKCache struct {
	mu   sync.Mutex
	exec Executor
	keys map[string][]string
}

// NewPKCache creates a cache backed by the given executor
func NewPKCache(exec Executor) *PKCache {
	return &PKCache{
		exec: exec,
		keys: make(map[string][]string),
	}
}

// Lookup returns the primary-key columns for a table, fetching them on first
// use. Tables without a primary key cache an empty slice so the catalog is
// not re-queried.
func (c *PKCache) Lookup(ctx context.Context, ref models.TableRef) ([]string, error) {
	c.mu.Lock()
	if cols, ok := c.keys[ref.Key()]; ok {
		c.mu.Unlock()
		return cols, nil
	}
	c.mu.Unlock()

	cols, err := c.exec.PrimaryKeys(ctx, ref)
	if err != nil {
		return nil, err
	}
	if cols == nil {
		cols = []string{}
	}

	c.mu.Lock()
	c.keys[ref.Key()] = cols
	c.mu.Unlock()
	return cols, nil
}

// Invalidate drops every cached entry. Called on disconnect.
func (c *PKCache) Invalidate() {
	c.mu.Lock()
	c.keys = make(map[string][]string)
	c.mu.Unlock()
}
