package catalog

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/plate"
)

// LookupObserver is told whether a plate lookup was served from cache.
type LookupObserver func(hit bool)

type cachedLookup struct {
	bus *Bus
	err error
}

// CachedStore caches plate lookups, including misses, in front of a Store.
// Writes that change a bus drop its entry.
type CachedStore struct {
	Store
	cache    *cache.Cache
	observer LookupObserver
}

// NewCachedStore wraps store with a lookup cache of the given TTL.
func NewCachedStore(store Store, ttl time.Duration, observer LookupObserver) *CachedStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if observer == nil {
		observer = func(bool) {}
	}
	return &CachedStore{
		Store:    store,
		cache:    cache.New(ttl, 2*ttl),
		observer: observer,
	}
}

// FindByPlate serves repeated lookups of the same normalized plate from memory.
func (c *CachedStore) FindByPlate(ctx context.Context, p string) (*Bus, error) {
	key := plate.Normalize(p)
	if v, ok := c.cache.Get(key); ok {
		c.observer(true)
		hit := v.(cachedLookup)
		if hit.bus == nil {
			return nil, hit.err
		}
		bus := *hit.bus
		return &bus, nil
	}
	c.observer(false)

	bus, err := c.Store.FindByPlate(ctx, p)
	switch {
	case err == nil:
		stored := *bus
		c.cache.SetDefault(key, cachedLookup{bus: &stored})
	case errors.IsNotFound(err):
		c.cache.SetDefault(key, cachedLookup{err: err})
	}
	return bus, err
}

// RecordSighting records through the store and invalidates the plate entry.
func (c *CachedStore) RecordSighting(ctx context.Context, p, mode string) (*ScanRecord, error) {
	rec, err := c.Store.RecordSighting(ctx, p, mode)
	c.cache.Delete(plate.Normalize(p))
	return rec, err
}

// Seed seeds through the store and flushes the cache.
func (c *CachedStore) Seed(ctx context.Context, data *SeedData) error {
	err := c.Store.Seed(ctx, data)
	c.cache.Flush()
	return err
}

// CachedPlates returns the number of cached lookups.
func (c *CachedStore) CachedPlates() int {
	return c.cache.ItemCount()
}
