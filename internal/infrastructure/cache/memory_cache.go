package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/metrics"
	"troubledesk/internal/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a per-process LRU. Entries expire after the smaller of
// their own ttl and the cache-wide maxTTL.
type MemoryCache struct {
	lru    *expirable.LRU[string, memoryEntry]
	maxTTL time.Duration
	now    func() time.Time
}

var _ ports.Cache = (*MemoryCache)(nil)

func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1024
	}
	return &MemoryCache{
		lru:    expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	entry, ok := c.lru.Get(trimmedKey)
	if ok && !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.lru.Remove(trimmedKey)
		ok = false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()
		return "", false, nil
	}
	metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	if ttl <= 0 || (c.maxTTL > 0 && ttl > c.maxTTL) {
		ttl = c.maxTTL
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(trimmedKey, entry)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	c.lru.Remove(trimmedKey)
	return nil
}

func checkKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", errors.New("key is required")
	}
	return trimmedKey, nil
}
