package cache

import (
	"context"
	"time"

	"troubledesk/internal/ports"
)

// NoopCache never stores anything; every Get misses.
type NoopCache struct{}

var _ ports.Cache = NoopCache{}

func (NoopCache) Get(ctx context.Context, key string) (string, bool, error) {
	if _, err := checkKey(ctx, key); err != nil {
		return "", false, err
	}
	return "", false, nil
}

func (NoopCache) Set(ctx context.Context, key string, _ string, _ time.Duration) error {
	_, err := checkKey(ctx, key)
	return err
}

func (NoopCache) Delete(ctx context.Context, key string) error {
	_, err := checkKey(ctx, key)
	return err
}
