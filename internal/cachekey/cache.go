// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cachekey

import (
	"context"
	"log/slog"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/cardinalhq/bootkit/config"
)

// Cache memoizes loader results by Key. Concurrent loads of the same key are
// collapsed into one; failed loads are returned but not cached.
type Cache[V any] struct {
	name  string
	items *ttlcache.Cache[string, V]
	group singleflight.Group
}

// NewCache builds a cache sized and timed by cfg. A zero MaxEntries means
// unbounded, a zero TTL means entries never expire.
func NewCache[V any](name string, cfg config.LocalCacheConfig) *Cache[V] {
	opts := []ttlcache.Option[string, V]{
		ttlcache.WithTTL[string, V](cfg.TTL()),
	}
	if cfg.MaxEntries > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, V](uint64(cfg.MaxEntries)))
	}
	return &Cache[V]{
		name:  name,
		items: ttlcache.New(opts...),
	}
}

// Start runs expired-item cleanup until Stop is called. It blocks.
func (c *Cache[V]) Start() {
	c.items.Start()
}

func (c *Cache[V]) Stop() {
	c.items.Stop()
}

// GetOrLoad returns the cached value for key, calling load on a miss.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key Key, load func(context.Context) (V, error)) (V, error) {
	id := key.Canonical()
	if item := c.items.Get(id); item != nil {
		return item.Value(), nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		if item := c.items.Get(id); item != nil {
			return item.Value(), nil
		}
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		c.items.Set(id, value, ttlcache.DefaultTTL)
		return value, nil
	})
	if err != nil {
		slog.Debug("Cache load failed",
			slog.String("cache", c.name),
			slog.String("method", key.Method()),
			slog.Any("error", err))
	}
	value, _ := v.(V)
	return value, err
}

// Evict removes key if present.
func (c *Cache[V]) Evict(key Key) {
	c.items.Delete(key.Canonical())
}

func (c *Cache[V]) Clear() {
	c.items.DeleteAll()
}

func (c *Cache[V]) Len() int {
	return c.items.Len()
}
