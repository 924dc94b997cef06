// player.go

package models

import (
	"time"
)

// PlayerProfile 玩家资料，持久化层只需要读写它的键值快照
type PlayerProfile struct {
	Name      string      `json:"name"`
	Ship      ShipData    `json:"ship"`
	LastScore ScoreRecord `json:"last_score"`
	Totals    TotalStats  `json:"totals"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TotalStats 玩家累计数据
type TotalStats struct {
	Matches          int     `json:"matches"`
	Wins             int     `json:"wins"`
	TotalScore       int     `json:"total_score"`
	HighestScore     int     `json:"highest_score"`
	Kills            int     `json:"kills"`
	Deaths           int     `json:"deaths"`
	HighestKills     int     `json:"highest_kills"`
	EnvironmentDeath int     `json:"environment_deaths"`
	JunkDestroyed    int     `json:"junk_destroyed"`
	ShotsFired       int     `json:"shots_fired"`
	ShotsHit         int     `json:"shots_hit"`
	Distance         float64 `json:"distance"`
}

// Merge 合并一局的数据
func (t *TotalStats) Merge(r ScoreRecord, won bool) {
	t.Matches++
	if won {
		t.Wins++
	}
	t.TotalScore += r.Score
	if r.Score > t.HighestScore {
		t.HighestScore = r.Score
	}
	t.Kills += r.Kills
	t.Deaths += r.Deaths
	if r.Kills > t.HighestKills {
		t.HighestKills = r.Kills
	}
	t.EnvironmentDeath += r.EnvironmentalDeaths
	t.JunkDestroyed += r.JunkDestroyed
	t.ShotsFired += r.ShotsFired
	t.ShotsHit += r.ShotsHit
	t.Distance += r.Distance
}

// Accuracy 累计命中率
func (t TotalStats) Accuracy() float64 {
	if t.ShotsFired == 0 {
		return 0
	}
	return float64(t.ShotsHit) / float64(t.ShotsFired)
}

// KD 击杀死亡比
func (t TotalStats) KD() float64 {
	if t.Deaths == 0 {
		return float64(t.Kills)
	}
	return float64(t.Kills) / float64(t.Deaths)
}

// ApplyMatch 记录最近一局并累加总数据
func (p *PlayerProfile) ApplyMatch(r PlayerMatchRecord) {
	p.LastScore = r.ScoreRecord
	p.Totals.Merge(r.ScoreRecord, r.Winner)
}

// NewPlayerProfile 新建玩家资料
func NewPlayerProfile(name string) *PlayerProfile {
	return &PlayerProfile{
		Name:      name,
		Ship:      DefaultShipData(),
		UpdatedAt: time.Now(),
	}
}
