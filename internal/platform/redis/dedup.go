package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultDedupTTL outlives a calendar day in every time zone.
const DefaultDedupTTL = 48 * time.Hour

const keyPrefix = "taskflow:"

// setNXClient is the part of *goredis.Client the dedup needs.
type setNXClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// AlertDedup remembers which alerts were sent with SET NX, so exactly one
// caller wins each key for the lifetime of the TTL.
type AlertDedup struct {
	client setNXClient
	ttl    time.Duration
}

// NewAlertDedup creates a Redis-backed dedup. A ttl of zero uses DefaultDedupTTL.
func NewAlertDedup(client setNXClient, ttl time.Duration) *AlertDedup {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &AlertDedup{client: client, ttl: ttl}
}

// MarkSent claims key. It reports true if this call was the first to do so.
func (d *AlertDedup) MarkSent(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: claiming %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the claim on key so a later MarkSent can win it again.
func (d *AlertDedup) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: releasing %s: %w", key, err)
	}
	return nil
}
