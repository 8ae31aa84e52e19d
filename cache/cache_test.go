// ABOUTME: Tests for the TTL cache
// ABOUTME: Covers expiry, per-entry TTLs, and removal

package cache

import (
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != "v" {
		t.Errorf("expected v, got %v", got)
	}
}

func TestCache_MissingKey(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestCache_ExpiredEntryInvisible(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("k", "v", 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should be a miss")
	}
}

func TestCache_PerEntryTTLBeatsDefault(t *testing.T) {
	c := New(5 * time.Millisecond)

	c.SetWithTTL("long", "v", time.Minute)
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get("long"); !ok {
		t.Error("entry with a long explicit TTL should survive the default")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", "v")
	c.Clear("k")
	if _, ok := c.Get("k"); ok {
		t.Error("cleared entry should be gone")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", "first")
	c.Set("k", "second")
	if got, _ := c.Get("k"); got != "second" {
		t.Errorf("expected second, got %v", got)
	}
}
