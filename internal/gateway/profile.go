package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// Profiles 玩家资料存储
type Profiles interface {
	Get(ctx context.Context, name string) (*models.PlayerProfile, error)
	GetOrCreate(ctx context.Context, name string) (*models.PlayerProfile, error)
	Put(ctx context.Context, profile *models.PlayerProfile) error
}

// ProfileHandler 玩家资料处理器
type ProfileHandler struct {
	profiles Profiles
	secret   string
}

// UpdateShipRequest 更新飞船请求
type UpdateShipRequest struct {
	Ship models.ShipData `json:"ship"`
}

// PlayerProfileInfo 玩家资料及派生统计
type PlayerProfileInfo struct {
	*models.PlayerProfile
	Statistics PlayerStatistics `json:"statistics"`
}

// PlayerStatistics 由累计数据派生，不存储
type PlayerStatistics struct {
	WinRate     float64 `json:"win_rate"`
	KD          float64 `json:"kd"`
	Accuracy    float64 `json:"accuracy"`
	AverageKill float64 `json:"average_kill"`
}

// NewProfileHandler 创建玩家资料处理器，profiles 为nil时接口返回503
func NewProfileHandler(profiles Profiles, secret string) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, secret: secret}
}

// RegisterHandlers 注册HTTP处理器
func (h *ProfileHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/profiles/", h.handleProfile)
}

// handleProfile 处理 /profiles/{name}
func (h *ProfileHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		sendError(w, "玩家资料服务未启用", http.StatusServiceUnavailable)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/profiles/")
	if err := validName(name); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGetProfile(w, r, name)
	case http.MethodPut:
		h.handleUpdateShip(w, r, name)
	default:
		sendError(w, "仅支持GET和PUT方法", http.StatusMethodNotAllowed)
	}
}

// handleGetProfile 获取玩家资料
func (h *ProfileHandler) handleGetProfile(w http.ResponseWriter, r *http.Request, name string) {
	profile, err := h.profiles.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			sendError(w, "玩家不存在", http.StatusNotFound)
			return
		}
		log.Printf("查询玩家资料失败: %v", err)
		sendError(w, "查询玩家资料失败", http.StatusInternalServerError)
		return
	}

	sendSuccess(w, "查询成功", PlayerProfileInfo{
		PlayerProfile: profile,
		Statistics:    statisticsOf(profile.Totals),
	})
}

// statisticsOf 计算派生统计
func statisticsOf(t models.TotalStats) PlayerStatistics {
	stats := PlayerStatistics{
		KD:       t.KD(),
		Accuracy: t.Accuracy(),
	}
	if t.Matches > 0 {
		stats.WinRate = float64(t.Wins) / float64(t.Matches)
		stats.AverageKill = float64(t.Kills) / float64(t.Matches)
	}
	return stats
}

// handleUpdateShip 更新玩家自己的飞船
func (h *ProfileHandler) handleUpdateShip(w http.ResponseWriter, r *http.Request, name string) {
	actor, err := actorFromRequest(r, h.secret)
	if err != nil {
		sendError(w, "未授权", http.StatusUnauthorized)
		return
	}
	if string(actor) != name {
		sendError(w, "只能修改自己的资料", http.StatusForbidden)
		return
	}

	var req UpdateShipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "无效的请求格式", http.StatusBadRequest)
		return
	}
	if err := validateShip(req.Ship); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.profiles.GetOrCreate(r.Context(), name)
	if err != nil {
		log.Printf("读取玩家资料失败: %v", err)
		sendError(w, "读取玩家资料失败", http.StatusInternalServerError)
		return
	}
	profile.Ship = req.Ship
	if err := h.profiles.Put(r.Context(), profile); err != nil {
		log.Printf("更新玩家资料失败: %v", err)
		sendError(w, "更新玩家资料失败", http.StatusInternalServerError)
		return
	}

	sendSuccess(w, "更新成功", profile)
}

// validateShip 检查飞船属性
func validateShip(s models.ShipData) error {
	switch {
	case s.Hitpoints <= 0:
		return errors.New("生命值必须大于0")
	case s.Mass <= 0:
		return errors.New("质量必须大于0")
	case s.Radius <= 0:
		return errors.New("半径必须大于0")
	case s.MaxSpeed < 0 || s.MovementSpeed < 0:
		return errors.New("速度不能为负")
	case s.Elasticity < 0 || s.Elasticity > 1:
		return errors.New("弹性必须在0到1之间")
	}
	return nil
}
