package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"throp/pkg/logging"
)

func newRedisStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := New(context.Background(), "redis://"+mr.Addr(), logging.NewTestLogger())
	if !store.Connected() {
		t.Fatal("store did not connect to miniredis")
	}
	t.Cleanup(store.Close)
	return store, mr
}

func TestStoreFallsBackWhenRedisUnreachable(t *testing.T) {
	ctx := context.Background()
	store := New(ctx, "redis://127.0.0.1:1/0", logging.NewTestLogger())
	if store.Connected() {
		t.Fatal("store claims connection to unreachable redis")
	}

	// Every operation still works against process memory.
	store.Set(ctx, Key("mentions", "42"), "1", time.Hour)
	if val, ok := store.Get(ctx, Key("mentions", "42")); !ok || val != "1" {
		t.Errorf("Get = %q, %v after fallback Set", val, ok)
	}
	if n := store.IncrementCounter(ctx, "replies_sent"); n != 1 {
		t.Errorf("IncrementCounter = %d, want 1", n)
	}
	if n := store.GetCounter(ctx, "replies_sent"); n != 1 {
		t.Errorf("GetCounter = %d, want 1", n)
	}
	store.AppendRecent(ctx, Key("state", "processed"), "42")
	if got := store.RecentByScore(ctx, Key("state", "processed"), 10); len(got) != 1 || got[0] != "42" {
		t.Errorf("RecentByScore = %v", got)
	}
}

func TestStoreEmptyURLUsesMemory(t *testing.T) {
	ctx := context.Background()
	store := New(ctx, "", logging.NewTestLogger())
	if store.Connected() {
		t.Fatal("store claims connection with no URL")
	}
	store.Set(ctx, "throp:test:k", "v", 0)
	if val, ok := store.Get(ctx, "throp:test:k"); !ok || val != "v" {
		t.Errorf("Get = %q, %v", val, ok)
	}
}

func TestStoreRedisRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	store.Set(ctx, Key("mentions", "7"), "1", time.Hour)
	if val, ok := store.Get(ctx, Key("mentions", "7")); !ok || val != "1" {
		t.Fatalf("Get = %q, %v", val, ok)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok := store.Get(ctx, Key("mentions", "7")); ok {
		t.Error("entry survived its TTL")
	}
}

func TestStoreMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := New(ctx, "", logging.NewTestLogger())

	store.Set(ctx, "throp:test:ttl", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := store.Get(ctx, "throp:test:ttl"); ok {
		t.Error("entry survived its TTL")
	}
}

func TestStoreCountersOnRedis(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		store.IncrementCounter(ctx, "questions_answered")
	}
	if n := store.GetCounter(ctx, "questions_answered"); n != 3 {
		t.Errorf("GetCounter = %d, want 3", n)
	}
	if n := store.GetCounter(ctx, "never_touched"); n != 0 {
		t.Errorf("GetCounter(untouched) = %d, want 0", n)
	}
}

func TestStoreRecentListTrimsAndOrders(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	key := Key("state", "processed")

	for i := 0; i < maxRecentEntries+50; i++ {
		store.AppendRecent(ctx, key, fmt.Sprintf("id-%d", i))
	}

	all := store.RecentByScore(ctx, key, 0)
	if len(all) != maxRecentEntries {
		t.Fatalf("list holds %d entries, want trimmed to %d", len(all), maxRecentEntries)
	}
	if all[0] != fmt.Sprintf("id-%d", maxRecentEntries+49) {
		t.Errorf("newest entry = %s", all[0])
	}

	top := store.RecentByScore(ctx, key, 3)
	if len(top) != 3 {
		t.Errorf("limit ignored, got %d entries", len(top))
	}
}

func TestStoreRecentListMemoryMirrorsRedis(t *testing.T) {
	ctx := context.Background()
	store := New(ctx, "", logging.NewTestLogger())
	key := Key("state", "processed")

	for i := 0; i < 5; i++ {
		store.AppendRecent(ctx, key, fmt.Sprintf("id-%d", i))
	}
	got := store.RecentByScore(ctx, key, 2)
	if len(got) != 2 || got[0] != "id-4" || got[1] != "id-3" {
		t.Errorf("RecentByScore = %v, want newest first", got)
	}
}

func TestStoreClearNamespace(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	store.Set(ctx, Key("mentions", "1"), "1", 0)
	store.IncrementCounter(ctx, "replies_sent")
	store.ClearNamespace(ctx)

	if _, ok := store.Get(ctx, Key("mentions", "1")); ok {
		t.Error("entry survived namespace clear")
	}
	if n := store.GetCounter(ctx, "replies_sent"); n != 0 {
		t.Errorf("counter survived namespace clear: %d", n)
	}
}
