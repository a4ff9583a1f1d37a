package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds the cache when no size is configured.
const DefaultMaxEntries = 1024

// ExistenceChecker confirms that a cached artifact reference is still readable.
type ExistenceChecker interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// ResultCache maps fingerprints to produced artifact references.
// It lives for the process lifetime and evicts the least recently used entry
// once full. Safe for concurrent use.
type ResultCache struct {
	entries *lru.Cache[string, string]
	store   ExistenceChecker
}

// NewResultCache creates a cache holding at most maxEntries fingerprints.
func NewResultCache(maxEntries int, store ExistenceChecker) (*ResultCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &ResultCache{entries: entries, store: store}, nil
}

// Lookup returns the artifact reference for fp when the artifact still exists.
// A stale entry is dropped and reported as a miss. So is a failed existence
// check, which is not surfaced as an error.
func (c *ResultCache) Lookup(ctx context.Context, fp string) (string, bool) {
	ref, ok := c.entries.Get(fp)
	if !ok {
		return "", false
	}
	if c.store == nil {
		return ref, true
	}
	exists, err := c.store.Exists(ctx, ref)
	if err != nil {
		return "", false
	}
	if !exists {
		c.entries.Remove(fp)
		return "", false
	}
	return ref, true
}

// Store records ref for fp, overwriting any previous value.
func (c *ResultCache) Store(fp, ref string) {
	c.entries.Add(fp, ref)
}

// Len returns the number of cached fingerprints.
func (c *ResultCache) Len() int {
	return c.entries.Len()
}
