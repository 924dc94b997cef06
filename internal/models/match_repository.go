package models

import (
	"context"
	"database/sql"
	"fmt"
)

// MatchRepository 对局记录的PostgreSQL存储
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository 创建对局记录存储
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// RecordMatch 在一个事务内写入对局和每个玩家的记录
func (r *MatchRepository) RecordMatch(ctx context.Context, match MatchRecord, players []PlayerMatchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_records (id, game_mode, seed, start_time, end_time, winner, tie, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		match.ID, string(match.GameMode), match.Seed, match.StartTime, match.EndTime,
		string(match.Winner), match.Tie, match.Duration,
	)
	if err != nil {
		return fmt.Errorf("写入对局记录失败: %w", err)
	}

	for _, p := range players {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO player_match_records (
				match_id, actor, kills, deaths, score, environmental_deaths,
				junk_destroyed, hostiles_destroyed, shots_fired, shots_hit,
				distance, highest_speed, winner
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			match.ID, string(p.Actor), p.Kills, p.Deaths, p.Score, p.EnvironmentalDeaths,
			p.JunkDestroyed, p.HostilesDestroyed, p.ShotsFired, p.ShotsHit,
			p.Distance, p.HighestSpeed, p.Winner,
		)
		if err != nil {
			return fmt.Errorf("写入玩家对局记录失败 %s: %w", p.Actor, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// RecentMatches 玩家最近的对局记录
func (r *MatchRepository) RecentMatches(ctx context.Context, actor ActorID, limit int) ([]PlayerMatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT pmr.match_id, pmr.actor, pmr.kills, pmr.deaths, pmr.score,
			pmr.environmental_deaths, pmr.junk_destroyed, pmr.hostiles_destroyed,
			pmr.shots_fired, pmr.shots_hit, pmr.distance, pmr.highest_speed, pmr.winner
		FROM player_match_records pmr
		JOIN match_records mr ON mr.id = pmr.match_id
		WHERE pmr.actor = $1
		ORDER BY mr.end_time DESC
		LIMIT $2`, string(actor), limit)
	if err != nil {
		return nil, fmt.Errorf("查询对局记录失败: %w", err)
	}
	defer rows.Close()

	records := make([]PlayerMatchRecord, 0)
	for rows.Next() {
		var rec PlayerMatchRecord
		var actorName string
		if err := rows.Scan(
			&rec.MatchID, &actorName, &rec.Kills, &rec.Deaths, &rec.Score,
			&rec.EnvironmentalDeaths, &rec.JunkDestroyed, &rec.HostilesDestroyed,
			&rec.ShotsFired, &rec.ShotsHit, &rec.Distance, &rec.HighestSpeed, &rec.Winner,
		); err != nil {
			return nil, fmt.Errorf("读取对局记录失败: %w", err)
		}
		rec.Actor = ActorID(actorName)
		records = append(records, rec)
	}
	return records, rows.Err()
}
