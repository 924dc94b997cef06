package models

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLeaderboard Redis排行榜管理器
type RedisLeaderboard struct {
	client *redis.Client
}

// NewRedisLeaderboard 创建Redis排行榜管理器
func NewRedisLeaderboard(client *redis.Client) *RedisLeaderboard {
	return &RedisLeaderboard{
		client: client,
	}
}

// 排行榜Redis键名
const (
	LeaderboardKillsKey = "leaderboard:kills"
	LeaderboardWinsKey  = "leaderboard:wins"
	LeaderboardScoreKey = "leaderboard:score"

	// 玩家详细信息键前缀
	PlayerInfoPrefix = "leaderboard:info:"

	// 玩家信息缓存时间
	LeaderboardCacheTTL = 24 * time.Hour
)

// LeaderboardKey 获取排行榜键名
func LeaderboardKey(scoreType LeaderboardType) string {
	switch scoreType {
	case LeaderboardKills:
		return LeaderboardKillsKey
	case LeaderboardWins:
		return LeaderboardWinsKey
	default:
		return LeaderboardScoreKey
	}
}

// RecordMatch 把一局的结果累加到排行榜
func (rl *RedisLeaderboard) RecordMatch(ctx context.Context, match MatchRecord, players []PlayerMatchRecord) error {
	pipe := rl.client.TxPipeline()
	for _, p := range players {
		member := string(p.Actor)
		pipe.ZIncrBy(ctx, LeaderboardKillsKey, float64(p.Kills), member)
		pipe.ZIncrBy(ctx, LeaderboardScoreKey, float64(p.Score), member)
		win := 0.0
		if p.Winner {
			win = 1
		}
		pipe.ZIncrBy(ctx, LeaderboardWinsKey, win, member)
		pipe.HIncrBy(ctx, PlayerInfoPrefix+member, "shots_fired", int64(p.ShotsFired))
		pipe.HIncrBy(ctx, PlayerInfoPrefix+member, "shots_hit", int64(p.ShotsHit))
		pipe.Expire(ctx, PlayerInfoPrefix+member, LeaderboardCacheTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("更新排行榜失败 %s: %w", match.ID, err)
	}
	return nil
}

// GetLeaderboard 获取排行榜
func (rl *RedisLeaderboard) GetLeaderboard(ctx context.Context, scoreType LeaderboardType, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	key := LeaderboardKey(scoreType)

	// 从Redis获取排行榜（按分数降序）
	members, err := rl.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(members))
	for i, member := range members {
		actor, ok := member.Member.(string)
		if !ok {
			continue
		}

		entry := LeaderboardEntry{
			Actor: ActorID(actor),
			Score: member.Score,
			Rank:  i + 1,
		}
		rl.fillEntry(ctx, &entry)
		entries = append(entries, entry)
	}

	return entries, nil
}

// fillEntry 补全击杀、胜场和命中率
func (rl *RedisLeaderboard) fillEntry(ctx context.Context, entry *LeaderboardEntry) {
	member := string(entry.Actor)
	if kills, err := rl.client.ZScore(ctx, LeaderboardKillsKey, member).Result(); err == nil {
		entry.TotalKills = int(kills)
	}
	if wins, err := rl.client.ZScore(ctx, LeaderboardWinsKey, member).Result(); err == nil {
		entry.TotalWins = int(wins)
	}

	info, err := rl.client.HGetAll(ctx, PlayerInfoPrefix+member).Result()
	if err != nil {
		return
	}
	var fired, hit int
	fmt.Sscan(info["shots_fired"], &fired)
	fmt.Sscan(info["shots_hit"], &hit)
	entry.Accuracy = ScoreRecord{ShotsFired: fired, ShotsHit: hit}.Accuracy()
}

// GetPlayerRank 获取玩家排名，不在排行榜中时返回-1
func (rl *RedisLeaderboard) GetPlayerRank(ctx context.Context, actor ActorID, scoreType LeaderboardType) (int, error) {
	key := LeaderboardKey(scoreType)

	rank, err := rl.client.ZRevRank(ctx, key, string(actor)).Result()
	if err != nil {
		if err == redis.Nil {
			return -1, nil // 玩家不在排行榜中
		}
		return -1, err
	}

	return int(rank) + 1, nil // Redis排名从0开始，转换为从1开始
}
