package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromate/hydromate-bot/internal/domain/leaderboard"
)

func TestKeysAndConfig(t *testing.T) {
	assert.Equal(t, "hydromate:leaderboard:2024-05-01", LeaderboardKey("2024-05-01"))

	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())
}

func TestCache_EmptyKey(t *testing.T) {
	c := NewCacheWithClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"}))
	defer c.Close()

	assert.ErrorIs(t, c.Set(context.Background(), "", 1, time.Second), ErrCacheKeyEmpty)
	var v int
	assert.ErrorIs(t, c.Get(context.Background(), "", &v), ErrCacheKeyEmpty)
	assert.NoError(t, c.Delete(context.Background()))
}

func TestNewLeaderboardCache_DefaultTTL(t *testing.T) {
	l := NewLeaderboardCache(nil, 0)
	assert.Equal(t, TTLLeaderboardCache, l.ttl)
}

// TestLeaderboardCache_Redis needs a running server:
// HYDROMATE_TEST_REDIS_ADDR=localhost:6379 go test ./internal/infrastructure/persistence/redis
func TestLeaderboardCache_Redis(t *testing.T) {
	addr := os.Getenv("HYDROMATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HYDROMATE_TEST_REDIS_ADDR not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})
	c := NewCacheWithClient(client)
	defer c.Close()
	require.NoError(t, c.Ping(context.Background()))

	ctx := context.Background()
	l := NewLeaderboardCache(c, time.Minute)
	require.NoError(t, l.Invalidate(ctx, "2099-01-01"))

	_, found, err := l.Get(ctx, "2099-01-01")
	require.NoError(t, err)
	assert.False(t, found)

	want := []leaderboard.Standing{{Position: 1, UserID: "C", Name: "Cy", CurrentMl: 2000, GoalMl: 1000, Percentage: 100}}
	require.NoError(t, l.Set(ctx, "2099-01-01", want))

	got, found, err := l.Get(ctx, "2099-01-01")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	require.NoError(t, l.Set(ctx, "2099-01-02", nil))
	got, found, err = l.Get(ctx, "2099-01-02")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)

	require.NoError(t, l.Invalidate(ctx, "2099-01-01"))
	_, found, err = l.Get(ctx, "2099-01-01")
	require.NoError(t, err)
	assert.False(t, found)
}
