package reader

import (
	"context"

	"believescreener/config"
	"believescreener/internal/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// pageCache keeps recently fetched pages for a short TTL and collapses
// concurrent fetches of the same URL into one upstream request. Failed
// fetches are never stored.
type pageCache struct {
	lru      *expirable.LRU[string, []byte]
	group    singleflight.Group
	coalesce bool
}

func newPageCache(cfg config.CacheConfig) *pageCache {
	c := &pageCache{coalesce: cfg.Coalesce}
	if cfg.Enabled && cfg.Size > 0 && cfg.TTL > 0 {
		c.lru = expirable.NewLRU[string, []byte](cfg.Size, nil, cfg.TTL)
	}
	return c
}

func (c *pageCache) get(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c.lru != nil {
		if body, ok := c.lru.Get(key); ok {
			metrics.ObserveCache("hit")
			return body, nil
		}
		metrics.ObserveCache("miss")
	}

	if !c.coalesce {
		return c.loadAndStore(ctx, key, load)
	}

	// The shared load outlives any single waiter; the HTTP client timeout
	// still bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.loadAndStore(shared, key, load)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			metrics.ObserveCache("shared")
		}
		return res.Val.([]byte), nil
	}
}

func (c *pageCache) loadAndStore(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	body, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if c.lru != nil {
		c.lru.Add(key, body)
	}
	return body, nil
}

// Purge drops every cached page.
func (r *PageReader) Purge() {
	if r.cache.lru != nil {
		r.cache.lru.Purge()
	}
}
