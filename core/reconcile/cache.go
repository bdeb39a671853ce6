package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Invalidator is implemented by reference caches the Orchestrator can mark stale.
type Invalidator interface {
	Invalidate()
}

// RefCache is a lazily populated, read-through cache of reference data such as
// the site index or the work order category catalog.
//
// It is owned by whoever builds the pipelines and passed explicitly to the
// enrichment functions that read it.
type RefCache[T any] struct {
	name string
	load func(ctx context.Context) (T, error)

	mu      sync.RWMutex
	value   T
	loaded  bool
	builtAt time.Time
	sf      singleflight.Group
}

// NewRefCache creates a cache that fills itself with load on first use.
func NewRefCache[T any](name string, load func(ctx context.Context) (T, error)) *RefCache[T] {
	return &RefCache[T]{name: name, load: load}
}

// Name returns the cache name, used in logs.
func (c *RefCache[T]) Name() string { return c.name }

// Get returns the cached value, loading it if the cache is empty or stale.
// Concurrent callers share a single load.
func (c *RefCache[T]) Get(ctx context.Context) (T, error) {
	c.mu.RLock()
	if c.loaded {
		v := c.value
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	return c.fill(ctx, false)
}

// Reload rebuilds the cache unconditionally.
func (c *RefCache[T]) Reload(ctx context.Context) (T, error) {
	return c.fill(ctx, true)
}

// Invalidate marks the cache stale; the next Get reloads it.
func (c *RefCache[T]) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

// BuiltAt returns when the cached value was loaded, zero if never.
func (c *RefCache[T]) BuiltAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.builtAt
}

func (c *RefCache[T]) fill(ctx context.Context, force bool) (T, error) {
	result, err, _ := c.sf.Do(c.name, func() (any, error) {
		// Double-check after acquiring singleflight lock
		if !force {
			c.mu.RLock()
			if c.loaded {
				v := c.value
				c.mu.RUnlock()
				return v, nil
			}
			c.mu.RUnlock()
		}

		v, err := c.load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.value = v
		c.loaded = true
		c.builtAt = time.Now()
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := result.(T)
	return v, nil
}
