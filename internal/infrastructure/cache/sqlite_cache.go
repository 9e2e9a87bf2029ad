package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/metrics"
	"troubledesk/internal/infrastructure/persistence/sqlite/model"
	"troubledesk/internal/ports"
)

// SQLiteCache keeps entries in the cache_entries table so they survive
// restarts and are shared by CLI invocations against the same database.
type SQLiteCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.Cache = (*SQLiteCache)(nil)

func NewSQLiteCache(db *gorm.DB) *SQLiteCache {
	return &SQLiteCache{db: db, now: time.Now}
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.CacheEntry
	if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.CacheLookups.WithLabelValues("sqlite", "miss").Inc()
			return "", false, nil
		}
		metrics.CacheLookups.WithLabelValues("sqlite", "error").Inc()
		return "", false, errs.Wrap(err, "query cache by key")
	}

	if row.ExpiresAt != nil && c.now().After(*row.ExpiresAt) {
		if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Delete(&model.CacheEntry{}).Error; err != nil {
			return "", false, errs.Wrap(err, "delete expired cache key")
		}
		metrics.CacheLookups.WithLabelValues("sqlite", "miss").Inc()
		return "", false, nil
	}

	metrics.CacheLookups.WithLabelValues("sqlite", "hit").Inc()
	return row.Value, true, nil
}

// Set upserts the entry. A non-positive ttl stores it without expiry.
func (c *SQLiteCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	now := c.now().UTC()
	row := model.CacheEntry{
		Key:       trimmedKey,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		row.ExpiresAt = &expiresAt
	}

	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Delete(&model.CacheEntry{}).Error; err != nil {
		return errs.Wrap(err, "delete cache key")
	}
	return nil
}

// PurgeExpired removes every expired entry and returns how many were dropped.
func (c *SQLiteCache) PurgeExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	result := c.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", c.now().UTC()).
		Delete(&model.CacheEntry{})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "purge expired cache keys")
	}
	return result.RowsAffected, nil
}
