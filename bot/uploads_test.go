// ABOUTME: Tests for the bounded file_id cache backing inline photo results.
// ABOUTME: Covers hits, eviction, and the disabled-capacity mode.
package bot

import "testing"

func TestFileIDCache_PutGet(t *testing.T) {
	c := newFileIDCache(4)
	c.Put("abc", "file-1")

	got, ok := c.Get("abc")
	if !ok || got != "file-1" {
		t.Errorf("Get = (%q, %v), want (file-1, true)", got, ok)
	}
}

func TestFileIDCache_MissOnUnknownKey(t *testing.T) {
	c := newFileIDCache(4)
	if _, ok := c.Get("nope"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestFileIDCache_Evicts(t *testing.T) {
	c := newFileIDCache(2)
	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Error("expected oldest entry evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected newest entry present")
	}
}

func TestFileIDCache_DisabledCapacity(t *testing.T) {
	c := newFileIDCache(0)
	c.Put("a", "1")
	if _, ok := c.Get("a"); ok {
		t.Error("expected caching disabled for capacity 0")
	}
}
