package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jacl-coder/PixelStorm-Arena/internal/auth"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// 玩家名最大长度
const maxNameLength = 32

// AuthHandler 认证处理器，签发游戏服务使用的令牌
type AuthHandler struct {
	secret string
	ttl    time.Duration
}

// TokenRequest 令牌请求
type TokenRequest struct {
	Name string `json:"name"`
}

// TokenData 令牌响应数据
type TokenData struct {
	Token     string         `json:"token"`
	Actor     models.ActorID `json:"actor"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(secret string, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthHandler{secret: secret, ttl: ttl}
}

// RegisterHandlers 注册HTTP处理器
func (h *AuthHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/auth/token", h.handleToken)
	mux.HandleFunc("/auth/validate", h.handleValidate)
}

// validName 检查玩家名
func validName(name string) error {
	if name == "" {
		return errors.New("玩家名不能为空")
	}
	if len(name) > maxNameLength {
		return errors.New("玩家名过长")
	}
	if strings.ContainsAny(name, " :/\t\n") {
		return errors.New("玩家名包含非法字符")
	}
	return nil
}

// handleToken 按玩家名签发令牌
func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "仅支持POST方法", http.StatusMethodNotAllowed)
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "无效的请求格式", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validName(req.Name); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor := models.ActorID(req.Name)
	token, err := auth.Issue(h.secret, actor, h.ttl)
	if err != nil {
		log.Printf("签发令牌失败: %v", err)
		sendError(w, "签发令牌失败", http.StatusInternalServerError)
		return
	}

	sendSuccess(w, "签发成功", TokenData{
		Token:     token,
		Actor:     actor,
		ExpiresAt: time.Now().Add(h.ttl),
	})
}

// handleValidate 校验令牌并返回参与者
func (h *AuthHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	actor, err := actorFromRequest(r, h.secret)
	if err != nil {
		sendError(w, "无效或已过期的令牌", http.StatusUnauthorized)
		return
	}
	sendSuccess(w, "令牌有效", map[string]models.ActorID{"actor": actor})
}
