package models

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CatalogCache is the process-wide, TTL-bounded view of the reference
// catalogs. Readers may see a catalog up to one TTL stale; correctness
// under concurrent writers comes from the idempotent store ensure, not
// from cache coherence. Thread it through explicitly, no singleton.
type CatalogCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	entries   map[CatalogKind]map[string]string // label key -> display label
	fetchedAt map[CatalogKind]time.Time

	// store hooks, swappable in tests
	fetch  func(ctx context.Context, kind CatalogKind) ([]string, error)
	ensure func(ctx context.Context, kind CatalogKind, label string) (bool, error)
}

func NewCatalogCache(ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = CatalogCacheTTL()
	}
	return &CatalogCache{
		ttl:       ttl,
		entries:   map[CatalogKind]map[string]string{},
		fetchedAt: map[CatalogKind]time.Time{},
		fetch:     GetCatalogLabels,
		ensure:    EnsureCatalogEntry,
	}
}

// SetStoreHooks swaps the backing fetch and ensure operations. Used by
// tests to run the cache against an in-memory store.
func (c *CatalogCache) SetStoreHooks(
	fetch func(ctx context.Context, kind CatalogKind) ([]string, error),
	ensure func(ctx context.Context, kind CatalogKind, label string) (bool, error),
) {
	c.fetch = fetch
	c.ensure = ensure
}

// CatalogCacheTTL defaults to one hour, override via CACHE_LIFESPAN (hours).
func CatalogCacheTTL() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

// Labels returns the cached labels for a kind, refreshing from the
// store when the TTL has lapsed.
func (c *CatalogCache) Labels(ctx context.Context, kind CatalogKind) ([]string, error) {
	if err := c.refreshIfStale(ctx, kind); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	labels := make([]string, 0, len(c.entries[kind]))
	for _, label := range c.entries[kind] {
		labels = append(labels, label)
	}
	return labels, nil
}

func (c *CatalogCache) Has(ctx context.Context, kind CatalogKind, label string) (bool, error) {
	if err := c.refreshIfStale(ctx, kind); err != nil {
		return false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[kind][labelKeyOf(label)]
	return ok, nil
}

// Ensure makes the label exist: read-through check first, then the
// conditional store create where "already exists" counts as success.
// Returns whether this call created a new catalog entry.
func (c *CatalogCache) Ensure(ctx context.Context, kind CatalogKind, label string) (bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, nil
	}

	ok, err := c.Has(ctx, kind, label)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	created, err := c.ensure(ctx, kind, label)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	if c.entries[kind] == nil {
		c.entries[kind] = map[string]string{}
	}
	c.entries[kind][labelKeyOf(label)] = label
	c.mu.Unlock()

	return created, nil
}

func (c *CatalogCache) refreshIfStale(ctx context.Context, kind CatalogKind) error {
	c.mu.RLock()
	fresh := time.Since(c.fetchedAt[kind]) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	labels, err := c.fetch(ctx, kind)
	if err != nil {
		return err
	}

	entries := make(map[string]string, len(labels))
	for _, label := range labels {
		entries[labelKeyOf(label)] = label
	}

	c.mu.Lock()
	c.entries[kind] = entries
	c.fetchedAt[kind] = time.Now()
	c.mu.Unlock()
	return nil
}

func labelKeyOf(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
