// stats.go

package models

import (
	"time"
)

// ScoreRecord 单个参与者的计分记录
type ScoreRecord struct {
	Actor               ActorID `json:"actor" msgpack:"actor"`
	Kills               int     `json:"kills" msgpack:"kills"`
	Deaths              int     `json:"deaths" msgpack:"deaths"`
	Score               int     `json:"score" msgpack:"score"`
	EnvironmentalDeaths int     `json:"environmental_deaths" msgpack:"environmental_deaths"` // 被敌对单位击毁
	JunkDestroyed       int     `json:"junk_destroyed" msgpack:"junk_destroyed"`
	HostilesDestroyed   int     `json:"hostiles_destroyed" msgpack:"hostiles_destroyed"`
	ShotsFired          int     `json:"shots_fired" msgpack:"shots_fired"`
	ShotsHit            int     `json:"shots_hit" msgpack:"shots_hit"`
	Distance            float64 `json:"distance" msgpack:"distance"`
	HighestSpeed        float64 `json:"highest_speed" msgpack:"highest_speed"`
}

// Accuracy 命中率，没有开火时为0；只在读取时计算，不存储
func (r ScoreRecord) Accuracy() float64 {
	if r.ShotsFired == 0 {
		return 0
	}
	return float64(r.ShotsHit) / float64(r.ShotsFired)
}

// MatchRecord 对局记录
type MatchRecord struct {
	ID        string    `json:"id"`
	GameMode  GameMode  `json:"game_mode"`
	Seed      int64     `json:"seed"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Winner    ActorID   `json:"winner,omitempty"`
	Tie       bool      `json:"tie"`
	Duration  float64   `json:"duration"` // 对局时长(秒)
}

// PlayerMatchRecord 玩家对局记录
type PlayerMatchRecord struct {
	MatchID string `json:"match_id"`
	ScoreRecord
	Winner bool `json:"winner"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Actor      ActorID `json:"actor"`
	TotalKills int     `json:"total_kills"`
	TotalWins  int     `json:"total_wins"`
	Accuracy   float64 `json:"accuracy"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// LeaderboardType 排行榜类型
type LeaderboardType string

const (
	// LeaderboardKills 击杀排行榜
	LeaderboardKills LeaderboardType = "kills"
	// LeaderboardWins 胜场排行榜
	LeaderboardWins LeaderboardType = "wins"
	// LeaderboardScore 得分排行榜
	LeaderboardScore LeaderboardType = "score"
)

// 注意：表结构定义已移至 pkg/db/schema.go 统一管理
