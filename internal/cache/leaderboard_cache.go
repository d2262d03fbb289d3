package cache

import (
	"context"

	"pongarena/internal/model"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles Redis ZSET operations for the wins leaderboard
type LeaderboardCache interface {
	AddWin(ctx context.Context, playerID string) error
	GetTop(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	GetRank(ctx context.Context, playerID string) (int64, error)
}

type leaderboardCache struct {
	client *redis.Client
	key    string
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
		key:    "leaderboard:wins",
	}
}

func (c *leaderboardCache) AddWin(ctx context.Context, playerID string) error {
	return c.client.ZIncrBy(ctx, c.key, 1, playerID).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, len(results))
	for i, z := range results {
		id, _ := z.Member.(string)
		entries[i] = model.LeaderboardEntry{
			PlayerID: id,
			Wins:     int64(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, playerID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key, playerID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}
