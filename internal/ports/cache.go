package ports

import (
	"context"
	"time"
)

// Cache stores short-lived string values such as derived statuses and
// parameter lookups. A ttl of zero means the adapter default.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
