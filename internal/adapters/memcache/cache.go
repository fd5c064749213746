package memcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"review_radar/internal/adapters/observability"
	"review_radar/internal/domain"
)

// Cache is an in-process search cache for single-instance deployments and
// for when redis is unreachable. Entries share one TTL set at construction;
// the per-call ttl is ignored.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

var _ domain.Cache = (*Cache)(nil)

func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 512
	}
	return &Cache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.lru.Get(key)
	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode cache value: %w", err)
	}
	observability.ObserveCache("memory", "hit")
	return true, nil
}

func (c *Cache) Set(_ context.Context, key string, v any, _ int) error {
	// stored as JSON so callers never share mutable slices
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	c.lru.Add(key, b)
	observability.ObserveCache("memory", "set")
	return nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.lru.Remove(key)
	observability.ObserveCache("memory", "del")
	return nil
}

func (c *Cache) Len() int { return c.lru.Len() }
