// Package delivery de-duplicates webhook deliveries by their provider id.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker remembers which deliveries have been processed. A delivery is
// recorded only after it was applied, so one that failed or was interrupted
// is processed again when the provider retries it.
type Tracker interface {
	// Seen reports whether id was recorded within the TTL.
	Seen(ctx context.Context, id string) (bool, error)
	// Record marks id as processed.
	Record(ctx context.Context, id string) error
}

// Noop never reports a delivery as seen. Used when Redis is not configured.
type Noop struct{}

// Seen always reports false.
func (Noop) Seen(context.Context, string) (bool, error) { return false, nil }

// Record does nothing.
func (Noop) Record(context.Context, string) error { return nil }

const keyPrefix = "webhook:delivery:"

// RedisTracker stores processed deliveries as expiring Redis keys.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTracker creates a tracker whose records expire after ttl.
func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl}
}

// Seen checks whether the delivery key exists.
func (t *RedisTracker) Seen(ctx context.Context, id string) (bool, error) {
	n, err := t.client.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("checking delivery %s: %w", id, err)
	}
	return n > 0, nil
}

// Record sets the delivery key with the tracker TTL.
func (t *RedisTracker) Record(ctx context.Context, id string) error {
	if err := t.client.Set(ctx, keyPrefix+id, time.Now().UTC().Unix(), t.ttl).Err(); err != nil {
		return fmt.Errorf("recording delivery %s: %w", id, err)
	}
	return nil
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}
