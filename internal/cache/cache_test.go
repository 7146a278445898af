package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(maxEntries int) (*MemoryCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(maxEntries)
	c.now = clock.now
	return c, clock
}

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(0)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.Set(ctx, "k", []byte("body"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(got) != "body" {
		t.Fatalf("Get = %q, %v, %v", got, ok, err)
	}

	// Returned slices must not alias the stored value.
	got[0] = 'X'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "body" {
		t.Errorf("cached value was mutated through returned slice: %q", again)
	}

	clock.t = clock.t.Add(time.Hour)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected entry to expire after ttl")
	}
}

func TestMemoryCacheZeroTTLIsNoop(t *testing.T) {
	c, _ := newTestCache(0)
	_ = c.Set(context.Background(), "k", []byte("v"), 0)
	if c.Len() != 0 {
		t.Errorf("expected nothing stored, got %d entries", c.Len())
	}
}

func TestMemoryCacheMaxEntries(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(2)

	_ = c.Set(ctx, "a", []byte("1"), time.Hour)
	clock.t = clock.t.Add(time.Second)
	_ = c.Set(ctx, "b", []byte("2"), time.Hour)
	clock.t = clock.t.Add(time.Second)
	_ = c.Set(ctx, "c", []byte("3"), time.Hour)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestMemoryCachePurge(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(0)

	_ = c.Set(ctx, "short", []byte("1"), time.Minute)
	_ = c.Set(ctx, "long", []byte("2"), time.Hour)

	clock.t = clock.t.Add(2 * time.Minute)
	if n := c.Purge(); n != 1 {
		t.Errorf("expected 1 purged entry, got %d", n)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 remaining entry, got %d", c.Len())
	}
}

func TestRedisCacheWithoutClient(t *testing.T) {
	c := &RedisCache{}
	if _, ok, err := c.Get(context.Background(), "k"); ok || err != nil {
		t.Errorf("Get on nil client = %v, %v", ok, err)
	}
	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Errorf("Set on nil client returned %v", err)
	}
}

func TestRedisCacheFromClientReportsErrors(t *testing.T) {
	// Nothing listens on port 1, so every command fails to dial.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheFromClient(client)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Errorf("Set with zero ttl should not reach redis, got %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err == nil {
		t.Errorf("Get = ok %v, err %v; want a connection error", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err == nil {
		t.Error("expected Set to report the connection error")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close returned %v", err)
	}
}
