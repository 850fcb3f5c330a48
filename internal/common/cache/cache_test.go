package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	value, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Clear(ctx))
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "test:"), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisCache(t)

	require.NoError(t, c.Set(ctx, "stats", map[string]interface{}{"total": 7}, time.Minute))

	value, ok := c.Get(ctx, "stats")
	require.True(t, ok)

	decoded, ok := value.(map[string]interface{})
	require.True(t, ok, "redis values come back JSON-decoded")
	assert.Equal(t, float64(7), decoded["total"])
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCacheClearRespectsPrefix(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, mr.Set("other:unrelated", "keep"))

	require.NoError(t, c.Clear(ctx))

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.True(t, mr.Exists("other:unrelated"))
}

func TestFactory(t *testing.T) {
	local, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &LocalCache{}, local)

	_, err = New(Config{Type: TypeRedis})
	assert.Error(t, err, "redis cache requires a client")

	_, err = New(Config{Type: "memcached"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	redisCache, err := New(Config{Type: TypeRedis, RedisClient: client, KeyPrefix: "test:"})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, redisCache)
}
