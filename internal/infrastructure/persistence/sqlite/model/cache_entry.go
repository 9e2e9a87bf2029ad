package model

import "time"

// CacheEntry backs the sqlite cache adapter. A nil ExpiresAt never expires.
type CacheEntry struct {
	Key       string     `gorm:"column:key;type:text;primaryKey"`
	Value     string     `gorm:"column:value;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
