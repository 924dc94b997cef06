// stats.go

package gateway

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// RoomDirectory 查询进行中房间的计分
type RoomDirectory interface {
	RoomScores(roomID string) ([]models.ScoreRecord, bool, bool)
}

// Leaderboard 排行榜
type Leaderboard interface {
	GetLeaderboard(ctx context.Context, scoreType models.LeaderboardType, limit int) ([]models.LeaderboardEntry, error)
	GetPlayerRank(ctx context.Context, actor models.ActorID, scoreType models.LeaderboardType) (int, error)
}

// MatchHistory 对局历史
type MatchHistory interface {
	RecentMatches(ctx context.Context, actor models.ActorID, limit int) ([]models.PlayerMatchRecord, error)
}

// StatsHandler 战绩处理器
type StatsHandler struct {
	rooms       RoomDirectory
	leaderboard Leaderboard
	history     MatchHistory
}

// RoomScoresData 房间计分
type RoomScoresData struct {
	RoomID string               `json:"room_id"`
	Over   bool                 `json:"over"`
	Scores []models.ScoreRecord `json:"scores"`
}

// RankData 玩家排名
type RankData struct {
	Actor models.ActorID         `json:"actor"`
	Type  models.LeaderboardType `json:"type"`
	Rank  int                    `json:"rank"`
}

// NewStatsHandler 创建战绩处理器，任一依赖为nil时对应接口返回503
func NewStatsHandler(rooms RoomDirectory, leaderboard Leaderboard, history MatchHistory) *StatsHandler {
	return &StatsHandler{
		rooms:       rooms,
		leaderboard: leaderboard,
		history:     history,
	}
}

// RegisterHandlers 注册HTTP处理器
func (h *StatsHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/stats/rooms/", h.handleRoomScores)
	mux.HandleFunc("/stats/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/stats/rank/", h.handleRank)
	mux.HandleFunc("/stats/history/", h.handleHistory)
}

// parseLimit 解析 limit 参数，非法值使用默认值
func parseLimit(r *http.Request, def, upper int) int {
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= upper {
		return l
	}
	return def
}

// parseLeaderboardType 解析排行榜类型，默认按得分
func parseLeaderboardType(r *http.Request) (models.LeaderboardType, bool) {
	switch t := models.LeaderboardType(r.URL.Query().Get("type")); t {
	case "":
		return models.LeaderboardScore, true
	case models.LeaderboardScore, models.LeaderboardKills, models.LeaderboardWins:
		return t, true
	default:
		return "", false
	}
}

// handleRoomScores 查询房间实时计分
func (h *StatsHandler) handleRoomScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	if h.rooms == nil {
		sendError(w, "游戏服务未在本进程运行", http.StatusServiceUnavailable)
		return
	}

	roomID := strings.TrimPrefix(r.URL.Path, "/stats/rooms/")
	scores, over, ok := h.rooms.RoomScores(roomID)
	if !ok {
		sendError(w, "房间不存在", http.StatusNotFound)
		return
	}

	sendSuccess(w, "查询成功", RoomScoresData{RoomID: roomID, Over: over, Scores: scores})
}

// handleLeaderboard 处理排行榜查询
func (h *StatsHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	if h.leaderboard == nil {
		sendError(w, "排行榜未启用", http.StatusServiceUnavailable)
		return
	}

	scoreType, ok := parseLeaderboardType(r)
	if !ok {
		sendError(w, "无效的排行榜类型", http.StatusBadRequest)
		return
	}
	limit := parseLimit(r, 50, 100)

	entries, err := h.leaderboard.GetLeaderboard(r.Context(), scoreType, limit)
	if err != nil {
		log.Printf("查询排行榜失败: %v", err)
		sendError(w, "查询排行榜失败", http.StatusInternalServerError)
		return
	}

	sendSuccess(w, "查询成功", entries)
}

// handleRank 查询玩家排名
func (h *StatsHandler) handleRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	if h.leaderboard == nil {
		sendError(w, "排行榜未启用", http.StatusServiceUnavailable)
		return
	}

	actor := models.ActorID(strings.TrimPrefix(r.URL.Path, "/stats/rank/"))
	if actor == models.NoActor {
		sendError(w, "缺少玩家名", http.StatusBadRequest)
		return
	}
	scoreType, ok := parseLeaderboardType(r)
	if !ok {
		sendError(w, "无效的排行榜类型", http.StatusBadRequest)
		return
	}

	rank, err := h.leaderboard.GetPlayerRank(r.Context(), actor, scoreType)
	if err != nil {
		log.Printf("查询玩家排名失败: %v", err)
		sendError(w, "查询玩家排名失败", http.StatusInternalServerError)
		return
	}
	if rank < 0 {
		sendError(w, "玩家不在排行榜中", http.StatusNotFound)
		return
	}

	sendSuccess(w, "查询成功", RankData{Actor: actor, Type: scoreType, Rank: rank})
}

// handleHistory 查询玩家最近的对局
func (h *StatsHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	if h.history == nil {
		sendError(w, "对局历史未启用", http.StatusServiceUnavailable)
		return
	}

	actor := models.ActorID(strings.TrimPrefix(r.URL.Path, "/stats/history/"))
	if actor == models.NoActor {
		sendError(w, "缺少玩家名", http.StatusBadRequest)
		return
	}

	matches, err := h.history.RecentMatches(r.Context(), actor, parseLimit(r, 10, 100))
	if err != nil {
		log.Printf("查询对局历史失败: %v", err)
		sendError(w, "查询对局历史失败", http.StatusInternalServerError)
		return
	}

	sendSuccess(w, "查询成功", matches)
}
