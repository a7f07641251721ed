package services

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"engagement-dashboard/models"
	"engagement-dashboard/scraper"
	"engagement-dashboard/utils"
)

type cacheKey struct {
	handle string
	limit  int
}

// FetchCache memoises complete fetch results per (handle, limit) for a fixed
// time-to-live. It is owned by the caller and wraps another Fetcher.
type FetchCache struct {
	next    scraper.Fetcher
	entries *expirable.LRU[cacheKey, []*models.RawPost]
	logger  *utils.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewFetchCache keeps at most size results for ttl each.
func NewFetchCache(next scraper.Fetcher, size int, ttl time.Duration, logger *utils.Logger) *FetchCache {
	return &FetchCache{
		next:    next,
		entries: expirable.NewLRU[cacheKey, []*models.RawPost](size, nil, ttl),
		logger:  logger,
	}
}

// FetchPosts implements scraper.Fetcher. Results that came with an error are
// passed through but never stored.
func (c *FetchCache) FetchPosts(ctx context.Context, handle string, limit int) ([]*models.RawPost, error) {
	key := cacheKey{handle: strings.ToLower(handle), limit: limit}

	if posts, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		c.logger.Debug("[cache] hit %s (limit %d)", handle, limit)
		return clonePosts(posts), nil
	}
	c.misses.Add(1)

	posts, err := c.next.FetchPosts(ctx, handle, limit)
	if err != nil {
		return posts, err
	}
	c.entries.Add(key, clonePosts(posts))
	return posts, nil
}

// Invalidate drops every cached result for handle.
func (c *FetchCache) Invalidate(handle string) int {
	h := strings.ToLower(handle)
	removed := 0
	for _, k := range c.entries.Keys() {
		if k.handle == h && c.entries.Remove(k) {
			removed++
		}
	}
	return removed
}

// Purge drops every cached result and returns how many were dropped.
func (c *FetchCache) Purge() int {
	n := c.entries.Len()
	c.entries.Purge()
	return n
}

// Len returns the number of live entries.
func (c *FetchCache) Len() int { return c.entries.Len() }

// Stats returns the hit and miss counters.
func (c *FetchCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func clonePosts(in []*models.RawPost) []*models.RawPost {
	out := make([]*models.RawPost, len(in))
	for i, p := range in {
		cp := *p
		out[i] = &cp
	}
	return out
}
