// messages.go

package protocol

import (
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// 客户端消息类型
const (
	MsgJoinQueue  = "join_queue"
	MsgLeaveQueue = "leave_queue"
	MsgCreateRoom = "create_room"
	MsgJoinRoom   = "join_room"
	MsgLeaveRoom  = "leave_room"
	MsgInput      = "input"
)

// 服务端消息类型
const (
	MsgWelcome          = "welcome"
	MsgQueued           = "queued"
	MsgRoomJoined       = "room_joined"
	MsgLeaveRoomConfirm = "leave_room_confirm"
	MsgMatchStart       = "match_start"
	MsgFrame            = "frame"
	MsgMatchEnd         = "match_end"
	MsgError            = "error"
)

// ClientMessage 客户端消息
type ClientMessage struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id,omitempty"`
	Mode   models.GameMode `json:"mode,omitempty"`
	Name   string          `json:"name,omitempty"`
	Input  *Input          `json:"input,omitempty"`
}

// Input 玩家输入
type Input struct {
	Thrust models.Vector2D `json:"thrust"` // 各分量在 [-1, 1]
	Aim    models.Vector2D `json:"aim"`
	Fire   bool            `json:"fire"`
}

// Envelope 服务端消息
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ErrorPayload 错误消息
type ErrorPayload struct {
	Message string `json:"message"`
}

// WelcomePayload 连接建立后的欢迎消息
type WelcomePayload struct {
	ConnectionID string         `json:"connection_id"`
	Actor        models.ActorID `json:"actor"`
	Encoding     string         `json:"encoding"`
}

// EntityState 实体状态
type EntityState struct {
	ID        string          `json:"id"`
	Category  models.Category `json:"category"`
	Template  string          `json:"template"`
	Sprite    string          `json:"sprite,omitempty"`
	Owner     models.ActorID  `json:"owner,omitempty"`
	State     string          `json:"state"`
	Visible   bool            `json:"visible"`
	Health    int             `json:"health"`
	MaxHealth int             `json:"max_health"`
	Position  models.Vector2D `json:"position"`
	Velocity  models.Vector2D `json:"velocity"`
	Angle     float64         `json:"angle"`
	Radius    float64         `json:"radius"`
}

// ProjectileState 投射物状态
type ProjectileState struct {
	ID       string          `json:"id"`
	Position models.Vector2D `json:"position"`
	Velocity models.Vector2D `json:"velocity"`
	By       models.ActorID  `json:"by,omitempty"`
}

// Frame 一帧的游戏状态
type Frame struct {
	FrameID     int64                `json:"frame_id"`
	Timestamp   int64                `json:"timestamp"` // 毫秒
	Elapsed     float64              `json:"elapsed"`
	Remaining   float64              `json:"remaining"`
	Over        bool                 `json:"over"`
	Entities    []EntityState        `json:"entities"`
	Projectiles []ProjectileState    `json:"projectiles"`
	Effects     []models.Effect      `json:"effects,omitempty"`
	Scores      []models.ScoreRecord `json:"scores"`
}

// MatchStart 对局开始
type MatchStart struct {
	RoomID    string           `json:"room_id"`
	Mode      models.GameMode  `json:"mode"`
	Seed      int64            `json:"seed"`
	TimeLimit float64          `json:"time_limit"`
	Players   []models.ActorID `json:"players"`
}

// MatchEnd 对局结束
type MatchEnd struct {
	RoomID  string               `json:"room_id"`
	MatchID string               `json:"match_id"`
	Result  models.MatchResult   `json:"result"`
	Scores  []models.ScoreRecord `json:"scores"`
}
