package taskapi

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache holds one value with a TTL. A stored value is never returned as
// fresh once inserted_at + ttl has elapsed; a miss is reported instead.
// Concurrent fills are collapsed into a single fetch via singleflight.
type Cache[T any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	value      T
	insertedAt time.Time
	has        bool
	flight     singleflight.Group
}

func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value when it is still fresh.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.freshLocked()
}

// Fetch returns the fresh cached value or fills it with exactly one
// underlying call; concurrent callers during a miss wait on that call's
// result instead of issuing their own.
func (c *Cache[T]) Fetch(ctx context.Context, fill func(context.Context) (T, error)) (T, error) {
	if value, ok := c.Get(); ok {
		return value, nil
	}

	// The fill serves every waiter on the flight, so it must not die with
	// the winning caller's context. The fill bounds itself.
	fillCtx := context.WithoutCancel(ctx)

	result, err, _ := c.flight.Do("fill", func() (any, error) {
		// Re-check under the flight: a concurrent winner may have filled it.
		if value, ok := c.Get(); ok {
			return value, nil
		}

		value, err := fill(fillCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.value = value
		c.insertedAt = c.now()
		c.has = true
		c.mu.Unlock()

		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result.(T), nil
}

// Invalidate drops the cached value immediately instead of waiting for TTL
// expiry.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.value = zero
	c.has = false
}

func (c *Cache[T]) freshLocked() (T, bool) {
	if !c.has || c.now().Sub(c.insertedAt) >= c.ttl {
		var zero T
		return zero, false
	}

	return c.value, true
}
