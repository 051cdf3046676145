package redis

import (
	"context"
	"errors"
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/leaderboard"
)

// LeaderboardCache keeps computed daily rankings in Redis.
// Entries expire after the TTL and are dropped on every mutation of the day.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a LeaderboardCache. ttl <= 0 uses TTLLeaderboardCache.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

// cachedLeaderboard is the stored value. Wrapping keeps an empty ranking
// distinguishable from a miss.
type cachedLeaderboard struct {
	DayKey    string                 `json:"day_key"`
	Standings []leaderboard.Standing `json:"standings"`
	CachedAt  time.Time              `json:"cached_at"`
}

// Get returns the cached ranking of dayKey.
func (l *LeaderboardCache) Get(ctx context.Context, dayKey string) ([]leaderboard.Standing, bool, error) {
	var v cachedLeaderboard
	err := l.cache.Get(ctx, LeaderboardKey(dayKey), &v)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if v.Standings == nil {
		v.Standings = []leaderboard.Standing{}
	}
	return v.Standings, true, nil
}

// Set stores the ranking of dayKey.
func (l *LeaderboardCache) Set(ctx context.Context, dayKey string, standings []leaderboard.Standing) error {
	return l.cache.Set(ctx, LeaderboardKey(dayKey), cachedLeaderboard{
		DayKey:    dayKey,
		Standings: standings,
		CachedAt:  time.Now().UTC(),
	}, l.ttl)
}

// Invalidate drops the cached ranking of dayKey.
func (l *LeaderboardCache) Invalidate(ctx context.Context, dayKey string) error {
	return l.cache.Delete(ctx, LeaderboardKey(dayKey))
}
