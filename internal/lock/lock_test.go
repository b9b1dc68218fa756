package lock_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/dmvprep-mailer/internal/lock"
)

func TestNoopAlwaysGrants(t *testing.T) {
	var l lock.Locker = lock.Noop{}
	for range 2 {
		unlock, ok, err := l.TryLock(context.Background(), "k", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, unlock(context.Background()))
	}
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisLock(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	l := lock.NewRedis(client)
	l.Prefix = "dmvmail:test:" + t.Name() + ":"

	unlock, ok, err := l.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	require.NoError(t, unlock(ctx))

	unlock, ok, err = l.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, unlock(ctx))
}
