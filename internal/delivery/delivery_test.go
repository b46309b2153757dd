package delivery_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meseeks-ai/meseeks/internal/delivery"
)

func TestNoop_NeverSeen(t *testing.T) {
	t.Parallel()

	var tr delivery.Tracker = delivery.Noop{}
	ctx := context.Background()

	require.NoError(t, tr.Record(ctx, "msg_1"))
	seen, err := tr.Seen(ctx, "msg_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := delivery.NewRedisClient(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}

func newRedisTracker(t *testing.T, ttl time.Duration) *delivery.RedisTracker {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://127.0.0.1:6379/15"
	}
	client, err := delivery.NewRedisClient(context.Background(), url)
	if err != nil {
		t.Skipf("skipping: cannot connect to test redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return delivery.NewRedisTracker(client, ttl)
}

func TestRedisTracker_RecordThenSeen(t *testing.T) {
	tr := newRedisTracker(t, time.Minute)
	ctx := context.Background()
	id := "msg_" + uuid.NewString()

	seen, err := tr.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen, "unprocessed delivery must not be seen")

	// Seen alone leaves nothing behind; an interrupted delivery stays retryable.
	seen, err = tr.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, tr.Record(ctx, id))

	seen, err = tr.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRedisTracker_RecordExpires(t *testing.T) {
	tr := newRedisTracker(t, time.Second)
	ctx := context.Background()
	id := "msg_" + uuid.NewString()

	require.NoError(t, tr.Record(ctx, id))

	assert.Eventually(t, func() bool {
		seen, err := tr.Seen(ctx, id)
		return err == nil && !seen
	}, 5*time.Second, 200*time.Millisecond)
}
