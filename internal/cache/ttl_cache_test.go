package cache

import (
	"sync"
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	value, ok := c.Get("a")
	if !ok || value != 1 {
		t.Fatalf("get = (%v, %v), want (1, true)", value, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithNow[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	now = now.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestTTLCacheNonPositiveTTLIgnored(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero ttl entry should not be stored")
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d, want 0", c.Len())
	}
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	c := NewTTLCache[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(i, j, time.Minute)
				c.Get(i)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 16 {
		t.Fatalf("len = %d, want 16", c.Len())
	}
}
