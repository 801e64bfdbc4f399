package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, "test:", ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedisStore(t, time.Hour)
	updated := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	if err := store.Put(ctx, &Entry{Key: "k", Payload: []byte(`{"a":[1,2]}`), UpdatedAt: updated}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("test:k") {
		t.Fatalf("expected prefixed key in redis")
	}
	if ttl := mr.TTL("test:k"); ttl != 2*time.Hour {
		t.Fatalf("expected retention of 2h, got %v", ttl)
	}

	e, err := store.Get(ctx, "k")
	if err != nil || e == nil {
		t.Fatalf("get: %v %v", e, err)
	}
	if string(e.Payload) != `{"a":[1,2]}` {
		t.Fatalf("unexpected payload %s", e.Payload)
	}
	if !e.UpdatedAt.Equal(updated) {
		t.Fatalf("expected %v, got %v", updated, e.UpdatedAt)
	}
}

func TestRedisStoreMissAndFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mr := newTestRedisStore(t, time.Hour)

	e, err := store.Get(ctx, "absent")
	if err != nil || e != nil {
		t.Fatalf("expected nil, nil for missing key, got %v %v", e, err)
	}

	mr.SetError("LOADING")
	if _, err := store.Get(ctx, "absent"); err == nil {
		t.Fatalf("expected error when redis fails")
	}
}
