package imagecache

import "testing"

func TestCachePutGet(t *testing.T) {
	t.Parallel()
	c := New()

	if _, ok := c.Get("https://x.test/a.png"); ok {
		t.Fatal("empty cache reported a hit")
	}

	c.Put("https://x.test/a.png", "K1")
	key, ok := c.Get("https://x.test/a.png")
	if !ok || key != "K1" {
		t.Fatalf("Get = (%q, %v), want (\"K1\", true)", key, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCacheLastWriteWins(t *testing.T) {
	t.Parallel()
	c := New()
	c.Put("https://x.test/a.png", "K1")
	c.Put("https://x.test/a.png", "K2")
	key, _ := c.Get("https://x.test/a.png")
	if key != "K2" {
		t.Fatalf("Get = %q, want K2", key)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCacheIgnoresEmptyValues(t *testing.T) {
	t.Parallel()
	c := New()
	c.Put("", "K1")
	c.Put("https://x.test/a.png", "")
	c.Put("   ", "   ")
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}
