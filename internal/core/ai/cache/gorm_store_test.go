package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"food-recommender/internal/infrastructure/config"
	"food-recommender/internal/infrastructure/database"
)

// countRows 資料表中指定 key 的筆數
func countRows(ctx context.Context, s *GormStore, key string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Record{}).Where("cache_key = ?", key).Count(&n).Error
	return n, err
}

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "cache.db"),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	store, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("new gorm store: %v", err)
	}
	return store
}

func TestGormStoreMissingKey(t *testing.T) {
	t.Parallel()

	store := newTestGormStore(t)
	e, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e != nil {
		t.Fatalf("expected nil entry, got %+v", e)
	}
}

func TestGormStoreUpsertKeepsOneRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestGormStore(t)
	first := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	if err := store.Put(ctx, &Entry{Key: "k", Payload: []byte(`{"v":1}`), UpdatedAt: first}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := store.Put(ctx, &Entry{Key: "k", Payload: []byte(`{"v":2}`), UpdatedAt: second}); err != nil {
		t.Fatalf("second put: %v", err)
	}

	n, err := countRows(ctx, store, "k")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one row, got %d", n)
	}

	e, err := store.Get(ctx, "k")
	if err != nil || e == nil {
		t.Fatalf("get: %v %v", e, err)
	}
	if string(e.Payload) != `{"v":2}` {
		t.Fatalf("expected overwritten payload, got %s", e.Payload)
	}
	if !e.UpdatedAt.Equal(second) {
		t.Fatalf("expected updated_at %v, got %v", second, e.UpdatedAt)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
