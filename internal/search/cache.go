package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/bookcluster/platform/internal/tokenize"
	"github.com/bookcluster/platform/pkg/config"
	pkgredis "github.com/bookcluster/platform/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "search:"

// QueryCache caches Search results keyed by the normalized (query, mode,
// limit) tuple, and collapses concurrent identical queries into a single
// computation via singleflight.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.SearchConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewQueryCache builds a QueryCache over an already-connected Redis client.
func NewQueryCache(client *pkgredis.Client, cfg config.SearchConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-cache"),
	}
}

func (c *QueryCache) get(ctx context.Context, rawQuery string, mode Mode, limit int) ([]ScoredDoc, bool) {
	key := c.buildKey(rawQuery, mode, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var results []ScoredDoc
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return results, true
}

func (c *QueryCache) set(ctx context.Context, rawQuery string, mode Mode, limit int, results []ScoredDoc) {
	key := c.buildKey(rawQuery, mode, limit)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for (rawQuery, mode, limit) if
// present, otherwise runs computeFn exactly once even under concurrent
// callers requesting the same query, and caches its result.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	rawQuery string,
	mode Mode,
	limit int,
	computeFn func() ([]ScoredDoc, error),
) ([]ScoredDoc, bool, error) {
	if results, ok := c.get(ctx, rawQuery, mode, limit); ok {
		return results, true, nil
	}
	key := c.buildKey(rawQuery, mode, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.get(ctx, rawQuery, mode, limit); ok {
			return results, nil
		}
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, rawQuery, mode, limit, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ScoredDoc), false, nil
}

// Invalidate drops every cached query result, used after the index state
// moves far enough (e.g. a bulk re-index) that stale cache entries are no
// longer acceptable.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Info("search cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats reports cumulative cache hit/miss counts.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey normalizes rawQuery's term order before hashing, so "cat dog"
// and "dog cat" share a cache entry under the same mode and limit.
func (c *QueryCache) buildKey(rawQuery string, mode Mode, limit int) string {
	terms := dedupeTerms(tokenize.Terms(rawQuery))
	sort.Strings(terms)
	raw := fmt.Sprintf("%s|%s|limit=%d", mode, strings.Join(terms, ","), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
