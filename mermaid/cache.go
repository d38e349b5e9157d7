// ABOUTME: Content-hash cache key derivation and the bounded LRU render-result cache.
// ABOUTME: Identical diagram text always maps to the same key; capacity 0 disables caching.
package mermaid

import (
	"crypto/md5"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity bounds the render-result cache. The original design
// grew without limit; a fixed-capacity LRU keeps long-running deployments
// from leaking memory one diagram at a time.
const DefaultCacheCapacity = 1024

// CacheKey returns the hex digest of the diagram text. MD5 is a cache
// discriminator here, not a security boundary; the adapter reuses the same
// scheme to key its platform-side asset cache.
func CacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// resultCache is a bounded LRU from CacheKey to Result. A nil inner cache
// means caching is disabled; Get always misses and Put is a no-op.
type resultCache struct {
	lru *lru.Cache[string, Result]
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		return &resultCache{}
	}
	// lru.New only fails for non-positive sizes, which are excluded above.
	c, err := lru.New[string, Result](capacity)
	if err != nil {
		return &resultCache{}
	}
	return &resultCache{lru: c}
}

func (c *resultCache) Get(key string) (Result, bool) {
	if c.lru == nil {
		return Result{}, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) Put(key string, res Result) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, res)
}

// Len reports the number of cached results.
func (c *resultCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
