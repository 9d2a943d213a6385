package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPresenceRepository(t *testing.T) {
	repo := NewMemoryPresenceRepository(time.Hour)
	ctx := context.Background()

	t.Run("RegisterAndLookup", func(t *testing.T) {
		require.NoError(t, repo.Register(ctx, "user-1", "conn-1"))

		conn, ok, err := repo.Lookup(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "conn-1", conn)
	})

	t.Run("ReRegister", func(t *testing.T) {
		require.NoError(t, repo.Register(ctx, "user-1", "conn-2"))

		conn, _, _ := repo.Lookup(ctx, "user-1")
		assert.Equal(t, "conn-2", conn)

		// old connection no longer maps to the user
		require.NoError(t, repo.Unregister(ctx, "conn-1"))
		conn, ok, _ := repo.Lookup(ctx, "user-1")
		assert.True(t, ok)
		assert.Equal(t, "conn-2", conn)
	})

	t.Run("Unregister", func(t *testing.T) {
		require.NoError(t, repo.Unregister(ctx, "conn-2"))
		_, ok, err := repo.Lookup(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Expiry", func(t *testing.T) {
		short := NewMemoryPresenceRepository(10 * time.Millisecond)
		require.NoError(t, short.Register(ctx, "u", "c"))
		time.Sleep(20 * time.Millisecond)
		_, ok, err := short.Lookup(ctx, "u")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "reset:user@example.com"
		allowed, _ := repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.False(t, allowed)

		// Wait for expiry
		time.Sleep(time.Second + 10*time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
	})
}
