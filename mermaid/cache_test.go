// ABOUTME: Tests for cache key derivation and the bounded LRU result cache.
// ABOUTME: Covers determinism, distinctness, eviction order, and the disabled-cache mode.
package mermaid

import "testing"

func TestCacheKey_Deterministic(t *testing.T) {
	text := "graph TD\nA-->B"
	if CacheKey(text) != CacheKey(text) {
		t.Error("identical text must yield identical keys")
	}
}

func TestCacheKey_DistinctTexts(t *testing.T) {
	a := CacheKey("graph TD\nA-->B")
	b := CacheKey("graph TD\nA-->C")
	if a == b {
		t.Errorf("distinct texts collided on key %s", a)
	}
}

func TestCacheKey_IsHexDigest(t *testing.T) {
	key := CacheKey("sequenceDiagram\nAlice->>Bob: Hello")
	if len(key) != 32 {
		t.Errorf("expected 32 hex chars, got %d (%s)", len(key), key)
	}
	for _, c := range key {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("non-hex character %q in key %s", c, key)
		}
	}
}

func TestResultCache_PutGet(t *testing.T) {
	c := newResultCache(4)
	res := Success([]byte{1, 2, 3})

	c.Put("k", res)
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got.Image) != string(res.Image) {
		t.Error("cached result differs from stored result")
	}
}

func TestResultCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newResultCache(2)
	c.Put("a", Success([]byte("a")))
	c.Put("b", Success([]byte("b")))

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}
	c.Put("c", Success([]byte("c")))

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestResultCache_DisabledCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		c := newResultCache(capacity)
		c.Put("k", Success([]byte("x")))
		if _, ok := c.Get("k"); ok {
			t.Errorf("capacity %d: expected caching disabled", capacity)
		}
		if c.Len() != 0 {
			t.Errorf("capacity %d: expected empty cache", capacity)
		}
	}
}

func TestResultCache_FailuresStoreVerbatim(t *testing.T) {
	c := newResultCache(4)
	failure := Failure(KindLayout, "Mermaid error: bad arrow")

	c.Put("k", failure)
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.OK() {
		t.Fatal("expected cached failure to stay a failure")
	}
	if got.Err.Message != failure.Err.Message || got.Err.Kind != failure.Err.Kind {
		t.Error("cached failure must replay verbatim")
	}
}
