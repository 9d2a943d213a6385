package repository

import (
	"context"
	"testing"
	"time"

	"bikeservice/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPresenceRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisPresenceRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("RegisterAndLookup", func(t *testing.T) {
		require.NoError(t, repo.Register(ctx, "user-1", "conn-a"))

		conn, ok, err := repo.Lookup(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "conn-a", conn)
		assert.Equal(t, "user-1", mustGet(t, s, "presence:conn:conn-a"))
	})

	t.Run("LookupUnknown", func(t *testing.T) {
		conn, ok, err := repo.Lookup(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, conn)
	})

	t.Run("ReRegisterReplacesConnection", func(t *testing.T) {
		require.NoError(t, repo.Register(ctx, "user-2", "conn-old"))
		require.NoError(t, repo.Register(ctx, "user-2", "conn-new"))

		conn, ok, err := repo.Lookup(ctx, "user-2")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "conn-new", conn)
		assert.False(t, s.Exists("presence:conn:conn-old"))
	})

	t.Run("UnregisterStaleConnectionKeepsCurrent", func(t *testing.T) {
		require.NoError(t, repo.Register(ctx, "user-3", "conn-1"))
		require.NoError(t, s.Set("presence:conn:conn-stale", "user-3"))

		require.NoError(t, repo.Unregister(ctx, "conn-stale"))

		conn, ok, err := repo.Lookup(ctx, "user-3")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "conn-1", conn)
	})

	t.Run("Unregister", func(t *testing.T) {
		require.NoError(t, repo.Register(ctx, "user-4", "conn-4"))
		require.NoError(t, repo.Unregister(ctx, "conn-4"))

		_, ok, err := repo.Lookup(ctx, "user-4")
		require.NoError(t, err)
		assert.False(t, ok)

		// unknown connection is a no-op
		assert.NoError(t, repo.Unregister(ctx, "conn-missing"))
	})

	t.Run("TTL", func(t *testing.T) {
		require.NoError(t, repo.Register(ctx, "user-5", "conn-5"))
		assert.Equal(t, time.Hour, s.TTL("presence:user:user-5"))

		s.FastForward(2 * time.Hour)
		_, ok, err := repo.Lookup(ctx, "user-5")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("CheckRateLimit", func(t *testing.T) {
		key := "otp:9800000000"
		allowed, err := repo.CheckRateLimit(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(time.Minute + time.Second)
		allowed, err = repo.CheckRateLimit(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.SetError("connection lost")
		defer s.SetError("")

		_, _, err := repo.Lookup(ctx, "user-1")
		assert.Error(t, err)
		assert.Error(t, repo.Register(ctx, "user-1", "conn-x"))
		_, err = repo.CheckRateLimit(ctx, "k", 1, time.Minute)
		assert.Error(t, err)
	})
}

func mustGet(t *testing.T, s *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := s.Get(key)
	require.NoError(t, err)
	return v
}

func TestRedisPresenceRepository_NilClient(t *testing.T) {
	repo := NewRedisPresenceRepository(nil, time.Hour)
	ctx := context.Background()

	assert.Error(t, repo.Register(ctx, "u", "c"))
	assert.Error(t, repo.Unregister(ctx, "c"))
	_, _, err := repo.Lookup(ctx, "u")
	assert.Error(t, err)
	_, err = repo.CheckRateLimit(ctx, "k", 1, time.Second)
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr(), PoolSize: 2})
	assert.NoError(t, Ping(context.Background(), client))
	assert.NoError(t, Close(client))
	assert.NoError(t, Close(nil))
}
