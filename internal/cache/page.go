// Package cache stores translated search pages in Redis. Only ranked ids,
// echoed fields and totals are cached; records are always re-read from the
// database on hydration.
//
// Every entity has a generation counter that is part of each page key.
// Invalidate bumps it, so a page computed before a write can never be read
// after it. Invalidate also opens a settle window during which no page is
// stored, covering the delay before the engine makes the write searchable.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
)

const (
	keyPrefix   = "search:"
	genPrefix   = "search:gen:"
	fencePrefix = "search:fence:"
)

// DefaultSettle outlasts Elasticsearch's default one second refresh interval.
const DefaultSettle = 2 * time.Second

// Key identifies one cached page. Generation comes from PageCache.Generation.
type Key struct {
	Entity     domain.EntityType
	Generation int64
	Query      string
	Page       int
	PageSize   int
	Fuzzy      bool
}

// String renders the Redis key. The query text is hashed so arbitrary
// input never ends up in key names.
func (k Key) String() string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(k.Query)))
	return fmt.Sprintf("%s%s:g%d:%d:%d:%t:%s", keyPrefix, k.Entity, k.Generation, k.Page, k.PageSize, k.Fuzzy, hex.EncodeToString(sum[:12]))
}

// PageCache is a Redis-backed cache of SearchPages.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	settle time.Duration
}

// NewPageCache creates a cache whose entries expire after ttl. After each
// Invalidate no page is stored for settle; zero disables the window.
func NewPageCache(client *redis.Client, ttl, settle time.Duration) *PageCache {
	return &PageCache{client: client, ttl: ttl, settle: settle}
}

// Generation returns the current generation of entity. It is zero until the
// first Invalidate.
func (c *PageCache) Generation(ctx context.Context, entity domain.EntityType) (int64, error) {
	gen, err := c.client.Get(ctx, genPrefix+string(entity)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get search generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached page and whether it was found.
func (c *PageCache) Get(ctx context.Context, k Key) (*domain.SearchPage, bool, error) {
	data, err := c.client.Get(ctx, k.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get search page: %w", err)
	}

	var page domain.SearchPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false, fmt.Errorf("unmarshal search page: %w", err)
	}
	return &page, true, nil
}

// Set stores page under k and reports whether it did. Nothing is stored
// while the entity is inside its settle window.
func (c *PageCache) Set(ctx context.Context, k Key, page *domain.SearchPage) (bool, error) {
	if c.settle > 0 {
		n, err := c.client.Exists(ctx, fencePrefix+string(k.Entity)).Result()
		if err != nil {
			return false, fmt.Errorf("redis check search settle window: %w", err)
		}
		if n > 0 {
			return false, nil
		}
	}

	data, err := json.Marshal(page)
	if err != nil {
		return false, fmt.Errorf("marshal search page: %w", err)
	}
	if err := c.client.Set(ctx, k.String(), data, c.ttl).Err(); err != nil {
		return false, fmt.Errorf("redis set search page: %w", err)
	}
	return true, nil
}

// Invalidate bumps the generation of entity, opens its settle window and
// drops the cached pages. It returns how many pages were removed.
func (c *PageCache) Invalidate(ctx context.Context, entity domain.EntityType) (int, error) {
	pipe := c.client.TxPipeline()
	if c.settle > 0 {
		pipe.Set(ctx, fencePrefix+string(entity), "1", c.settle)
	}
	pipe.Incr(ctx, genPrefix+string(entity))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis bump search generation: %w", err)
	}

	pattern := keyPrefix + string(entity) + ":*"

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del search pages: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// Ping checks Redis reachability.
func (c *PageCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *PageCache) Close() error {
	return c.client.Close()
}
