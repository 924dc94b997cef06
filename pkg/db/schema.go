// schema.go

package db

// 统一的数据库表结构定义

// CreateAllTablesSQL 创建所有表的SQL语句
const CreateAllTablesSQL = `
-- 对局记录表
CREATE TABLE IF NOT EXISTS match_records (
    id VARCHAR(50) PRIMARY KEY,
    game_mode VARCHAR(20) NOT NULL,
    seed BIGINT NOT NULL,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE NOT NULL,
    winner VARCHAR(50),
    tie BOOLEAN DEFAULT false,
    duration DOUBLE PRECISION DEFAULT 0 -- 秒
);

-- 玩家对局记录表
CREATE TABLE IF NOT EXISTS player_match_records (
    match_id VARCHAR(50) REFERENCES match_records(id) ON DELETE CASCADE,
    actor VARCHAR(50) NOT NULL,
    kills INT DEFAULT 0,
    deaths INT DEFAULT 0,
    score INT DEFAULT 0,
    environmental_deaths INT DEFAULT 0,
    junk_destroyed INT DEFAULT 0,
    hostiles_destroyed INT DEFAULT 0,
    shots_fired INT DEFAULT 0,
    shots_hit INT DEFAULT 0,
    distance DOUBLE PRECISION DEFAULT 0,
    highest_speed DOUBLE PRECISION DEFAULT 0,
    winner BOOLEAN DEFAULT false,
    PRIMARY KEY (match_id, actor),
    CHECK (shots_hit <= shots_fired)
);

-- 玩家累计数据视图
CREATE OR REPLACE VIEW player_totals AS
SELECT
    pmr.actor,
    COUNT(*) AS matches,
    SUM(CASE WHEN pmr.winner THEN 1 ELSE 0 END) AS wins,
    SUM(pmr.kills) AS kills,
    SUM(pmr.deaths) AS deaths,
    SUM(pmr.score) AS total_score,
    SUM(pmr.shots_fired) AS shots_fired,
    SUM(pmr.shots_hit) AS shots_hit
FROM
    player_match_records pmr
GROUP BY
    pmr.actor;

-- 创建索引以提高查询性能
CREATE INDEX IF NOT EXISTS idx_player_match_records_actor ON player_match_records(actor);
CREATE INDEX IF NOT EXISTS idx_match_records_game_mode ON match_records(game_mode);
CREATE INDEX IF NOT EXISTS idx_match_records_end_time ON match_records(end_time);
`

// DropAllTablesSQL 删除所有表和视图
const DropAllTablesSQL = `
DROP VIEW IF EXISTS player_totals CASCADE;
DROP TABLE IF EXISTS player_match_records CASCADE;
DROP TABLE IF EXISTS match_records CASCADE;
`

// InitAllTables 初始化所有数据库表
func InitAllTables() error {
	_, err := DB.Exec(CreateAllTablesSQL)
	if err != nil {
		return err
	}
	return nil
}

// DropAllTables 删除所有数据库表
func DropAllTables() error {
	_, err := DB.Exec(DropAllTablesSQL)
	return err
}
