package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	rc := NewRedisCache(client, "quotes")
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "AAPL", []sample{{"AAPL", 1.5}}, time.Minute))
	assert.True(t, mr.Exists("quotes:AAPL"), "keys carry the prefix")

	var got []sample
	require.NoError(t, rc.Get(ctx, "AAPL", &got))
	assert.Equal(t, []sample{{"AAPL", 1.5}}, got)

	ok, err := rc.Exists(ctx, "AAPL", "MSFT")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, rc.Delete(ctx, "AAPL"))
	assert.False(t, mr.Exists("quotes:AAPL"))
	assert.ErrorIs(t, rc.Get(ctx, "AAPL", &got), ErrCacheMiss)
	assert.NoError(t, rc.Delete(ctx))
}

func TestRedisCacheExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	rc := NewRedisCache(client, "")
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k", "v", time.Second))
	assert.True(t, mr.Exists("stockcast:k"), "empty prefix falls back to the default")

	mr.FastForward(2 * time.Second)
	var s string
	assert.ErrorIs(t, rc.Get(ctx, "k", &s), ErrCacheMiss)

	ok, err := rc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCloseKeepsClient(t *testing.T) {
	_, client := newTestRedis(t)
	rc := NewRedisCache(client, "p")

	require.NoError(t, rc.Close())
	assert.Same(t, client, rc.Client())
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestLayeredCacheReadsThroughRedis(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	writer := NewLayeredCache(NewRedisCache(client, "p"), WithLayeredMemoryTTL(time.Minute))
	defer writer.Close()
	require.NoError(t, writer.Set(ctx, "k", sample{"MSFT", 2}, time.Minute))
	assert.True(t, mr.Exists("p:k"))

	// A second instance has a cold L1 and must fall back to Redis.
	reader := NewLayeredCache(NewRedisCache(client, "p"))
	defer reader.Close()
	var got sample
	require.NoError(t, reader.Get(ctx, "k", &got))
	assert.Equal(t, sample{"MSFT", 2}, got)

	require.NoError(t, reader.Delete(ctx, "k"))
	assert.False(t, mr.Exists("p:k"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	host, addr := mr.Host(), mr.Addr()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), WithRedisHost(host), WithRedisPort(port))
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, addr, client.Options().Addr)

	mr.Close()
	_, err = NewRedisClient(context.Background(), WithRedisHost(host), WithRedisPort(port))
	assert.Error(t, err)
}
