package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"troubledesk/internal/infrastructure/persistence/sqlite/model"
)

func setupSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "cache.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&model.CacheEntry{}); err != nil {
		t.Fatalf("auto migrate cache_entries: %v", err)
	}

	return NewSQLiteCache(db)
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "incident_status:1", `{"status":"Completed"}`, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "incident_status:1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != `{"status":"Completed"}` {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "incident_status:1", `{"status":"SecondInfoDelayed"}`, time.Minute); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, found, _ = cache.Get(ctx, "incident_status:1")
	if !found || value != `{"status":"SecondInfoDelayed"}` {
		t.Fatalf("Get() after update = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "incident_status:1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ = cache.Get(ctx, "incident_status:1"); found {
		t.Fatalf("Get() expected found=false after delete")
	}
}

func TestSQLiteCacheExpiry(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "sysparam:secondInfoDeadlineDays", "7", 30*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set(ctx, "forever", "x", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(29 * time.Minute)
	if _, found, _ := cache.Get(ctx, "sysparam:secondInfoDeadlineDays"); !found {
		t.Fatalf("Get() before expiry found=false")
	}

	now = now.Add(2 * time.Minute)
	purged, err := cache.PurgeExpired(ctx)
	if err != nil || purged != 1 {
		t.Fatalf("PurgeExpired() = %d, %v", purged, err)
	}
	if _, found, _ := cache.Get(ctx, "sysparam:secondInfoDeadlineDays"); found {
		t.Fatalf("Get() after expiry found=true")
	}
	if _, found, _ := cache.Get(ctx, "forever"); !found {
		t.Fatalf("Get(forever) found=false")
	}
}

func TestSQLiteCacheRejectsEmptyKey(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, " "); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
