// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package engine // import "github.com/Falcon-OS/platform-external-perfetto/engine"

import (
	"context"
	"sync/atomic"

	lru "github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"

	"github.com/Falcon-OS/platform-external-perfetto/libtv"
	"github.com/Falcon-OS/platform-external-perfetto/util"
)

// CachedEngine decorates an Engine with a query cache. Track synthesis and
// session re-entry issue many identical queries against an engine whose
// contents only change through Ingest; caching the columnar results keeps
// those passes from hitting the engine twice.
//
// Cached results stay valid until the next Ingest call, which drops the
// whole cache. Failed queries are never cached.
type CachedEngine struct {
	inner Engine

	// queryCache stores mappings from query text hashes to columnar results.
	queryCache *lru.SyncedLRU[uint64, *QueryResult]

	// Metrics
	cacheHit  atomic.Uint64
	cacheMiss atomic.Uint64
}

var _ Engine = (*CachedEngine)(nil)

// NewCachedEngine wraps inner with a query cache holding up to cacheSize
// results. The capacity is rounded up to the next power of two.
func NewCachedEngine(inner Engine, cacheSize uint32) (*CachedEngine, error) {
	queryCache, err := lru.NewSynced[uint64, *QueryResult](
		util.NextPowerOfTwo(cacheSize), func(k uint64) uint32 { return uint32(k) })
	if err != nil {
		return nil, err
	}
	return &CachedEngine{
		inner:      inner,
		queryCache: queryCache,
	}, nil
}

// Ingest feeds a chunk to the underlying engine and drops all cached
// results, as the engine contents are changing.
func (c *CachedEngine) Ingest(ctx context.Context, data []byte) error {
	c.queryCache.Purge()
	return c.inner.Ingest(ctx, data)
}

func (c *CachedEngine) FinalizeIngest(ctx context.Context) error {
	return c.inner.FinalizeIngest(ctx)
}

// Query returns the cached result for the query text if one exists, and
// delegates to the underlying engine otherwise.
func (c *CachedEngine) Query(ctx context.Context, query string) (*QueryResult, error) {
	key := xxh3.HashString(query)
	if res, exists := c.queryCache.Get(key); exists {
		c.cacheHit.Add(1)
		return res, nil
	}
	c.cacheMiss.Add(1)

	res, err := c.inner.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	c.queryCache.Add(key, res)
	return res, nil
}

func (c *CachedEngine) TimeBounds(ctx context.Context) (libtv.TimeSpan, error) {
	return c.inner.TimeBounds(ctx)
}

func (c *CachedEngine) CPUs(ctx context.Context) ([]uint32, error) {
	return c.inner.CPUs(ctx)
}

func (c *CachedEngine) NumGPUs(ctx context.Context) (uint32, error) {
	return c.inner.NumGPUs(ctx)
}

func (c *CachedEngine) Close() error {
	c.queryCache.Purge()
	return c.inner.Close()
}

// CacheStats returns the number of cache hits and misses since creation.
func (c *CachedEngine) CacheStats() (hits, misses uint64) {
	return c.cacheHit.Load(), c.cacheMiss.Load()
}
