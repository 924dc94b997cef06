package models

import (
	"time"
)

// GameMode 游戏模式
type GameMode string

const (
	// ModePvP 双人对战
	ModePvP GameMode = "pvp"
	// ModeSingle 单人对抗敌对单位
	ModeSingle GameMode = "single"
)

// MaxPlayers 模式允许的最大玩家数
func (m GameMode) MaxPlayers() int {
	switch m {
	case ModeSingle:
		return 1
	default:
		return 2
	}
}

// RoomStatus 房间状态
type RoomStatus string

const (
	// RoomWaiting 等待中
	RoomWaiting RoomStatus = "waiting"
	// RoomPlaying 游戏中
	RoomPlaying RoomStatus = "playing"
	// RoomEnded 已结束
	RoomEnded RoomStatus = "ended"
)

// RoomInfo 房间信息
type RoomInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Mode       GameMode   `json:"mode"`
	Status     RoomStatus `json:"status"`
	MaxPlayers int        `json:"max_players"`
	Players    int        `json:"players"`
	CreatedAt  time.Time  `json:"created_at"`
	Seed       int64      `json:"seed"`
}

// MatchResult 对局结果，平局是合法结果
type MatchResult struct {
	Winner ActorID         `json:"winner,omitempty"`
	Tie    bool            `json:"tie"`
	Scores map[ActorID]int `json:"scores"`
}
