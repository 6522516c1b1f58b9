// Package query caches remote read results per browser and implements the
// invalidate-and-refetch policy used after mutations.
package query

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cached read, e.g. {"products", "all"}. Invalidation
// matches by prefix, so {"products"} covers every location.
type Key []string

func (k Key) String() string { return strings.Join(k, "/") }

func (k Key) hasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
}

// Cache holds fetched values until invalidated. Every invalidation bumps a
// generation; a fetch that started under an older generation returns its
// result to its caller but never stores it.
type Cache struct {
	mu      sync.Mutex
	gen     uint64
	entries map[string]entry
	group   singleflight.Group
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{entries: make(map[string]entry), logger: logger}
}

// Fetch returns the cached value for key or runs fn once for all concurrent
// callers of the same key and generation.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	k := key.String()

	c.mu.Lock()
	if e, ok := c.entries[k]; ok {
		c.mu.Unlock()
		if v, ok := e.value.(T); ok {
			return v, nil
		}
		var zero T
		return zero, nil
	}
	gen := c.gen
	c.mu.Unlock()

	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10)+"|"+k, func() (any, error) {
		res, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			c.logger.Debug("query: discarding stale result", zap.String("key", k))
			return res, nil
		}
		c.entries[k] = entry{key: key, value: res, fetchedAt: time.Now()}
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Invalidate drops every entry under prefix.
func (c *Cache) Invalidate(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	n := 0
	for k, e := range c.entries {
		if e.key.hasPrefix(prefix) {
			delete(c.entries, k)
			n++
		}
	}
	c.logger.Debug("query: invalidated", zap.String("prefix", prefix.String()), zap.Int("entries", n))
}

// Clear drops everything. Used on logout so nothing fetched under the old
// identity survives.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]entry)
	c.logger.Debug("query: cleared")
}

func (c *Cache) Has(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key.String()]
	return ok
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
