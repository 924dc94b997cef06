package game

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jacl-coder/PixelStorm-Arena/config"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/protocol"
	"github.com/jacl-coder/PixelStorm-Arena/internal/spawn"
)

// 持久化对局结果的超时时间
const recordTimeout = 5 * time.Second

// Room 游戏房间
type Room struct {
	ID         string
	Name       string
	Mode       models.GameMode
	MaxPlayers int
	CreatedAt  time.Time

	// 对局状态
	status    models.RoomStatus
	startedAt time.Time
	endedAt   time.Time
	matchID   string
	timeLimit float64
	statusMu  sync.RWMutex

	// 玩家管理
	players     map[string]*PlayerState
	playerMutex sync.RWMutex

	// 模拟
	arena      *Arena
	arenaMutex sync.Mutex
	tickRate   int
	recorder   Recorder

	// 控制通道
	shutdown     chan struct{}
	stopOnce     sync.Once
	isRunning    bool
	lastActivity time.Time
}

// PlayerState 玩家在房间中的状态
type PlayerState struct {
	Connection *PlayerConnection
	Actor      models.ActorID
	EntityID   string
}

// NewRoom 创建新房间并按种子生成场景，recorder 可以为nil
func NewRoom(name string, mode models.GameMode, cfg config.ArenaConfig, tickRate int, recorder Recorder) (*Room, error) {
	seed, err := spawn.ResolveSeed(cfg.Seed)
	if err != nil {
		return nil, err
	}

	arena := NewArena(cfg, mode, seed, tickRate)
	if _, err := arena.Populate(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Room{
		ID:           uuid.New().String(),
		Name:         name,
		Mode:         mode,
		MaxPlayers:   mode.MaxPlayers(),
		CreatedAt:    now,
		status:       models.RoomWaiting,
		timeLimit:    cfg.MatchTimeLimit,
		players:      make(map[string]*PlayerState),
		arena:        arena,
		tickRate:     tickRate,
		recorder:     recorder,
		shutdown:     make(chan struct{}),
		lastActivity: now,
	}, nil
}

// Start 启动房间
func (r *Room) Start() error {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()

	if r.isRunning {
		return fmt.Errorf("房间已经在运行")
	}

	log.Printf("房间 %s 启动，种子: %d", r.ID, r.arena.Seed())
	r.isRunning = true
	r.lastActivity = time.Now()

	// 游戏循环
	go r.gameLoop()

	return nil
}

// Stop 停止房间
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.shutdown)

		r.statusMu.Lock()
		r.isRunning = false
		if r.status != models.RoomEnded {
			r.status = models.RoomEnded
			r.endedAt = time.Now()
		}
		r.statusMu.Unlock()

		log.Printf("房间 %s 已停止", r.ID)
	})
}

// Status 房间状态
func (r *Room) Status() models.RoomStatus {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// MatchID 对局ID，开始前为空
func (r *Room) MatchID() string {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.matchID
}

// Info 房间信息
func (r *Room) Info() models.RoomInfo {
	r.statusMu.RLock()
	status := r.status
	r.statusMu.RUnlock()

	return models.RoomInfo{
		ID:         r.ID,
		Name:       r.Name,
		Mode:       r.Mode,
		Status:     status,
		MaxPlayers: r.MaxPlayers,
		Players:    r.GetPlayerCount(),
		CreatedAt:  r.CreatedAt,
		Seed:       r.arena.Seed(),
	}
}

// Scores 当前计分快照和对局是否结束
func (r *Room) Scores() ([]models.ScoreRecord, bool) {
	r.arenaMutex.Lock()
	defer r.arenaMutex.Unlock()
	return r.arena.Scores().Snapshots(), r.arena.Over()
}

// AddPlayer 添加玩家到房间，人数凑满后对局开始
func (r *Room) AddPlayer(conn *PlayerConnection, ship models.ShipData) error {
	r.playerMutex.Lock()

	if len(r.players) >= r.MaxPlayers {
		r.playerMutex.Unlock()
		return fmt.Errorf("房间已满")
	}
	if r.Status() != models.RoomWaiting {
		r.playerMutex.Unlock()
		return fmt.Errorf("游戏已经开始，无法加入")
	}

	r.arenaMutex.Lock()
	entityID, err := r.arena.AddPlayer(conn.Actor, ship)
	r.arenaMutex.Unlock()
	if err != nil {
		r.playerMutex.Unlock()
		return fmt.Errorf("加入对局失败: %w", err)
	}

	r.players[conn.ID] = &PlayerState{
		Connection: conn,
		Actor:      conn.Actor,
		EntityID:   entityID,
	}
	conn.SetRoom(r)
	full := len(r.players) == r.MaxPlayers
	r.playerMutex.Unlock()

	r.touch()
	log.Printf("玩家 %s 加入房间 %s", conn.Actor, r.ID)
	conn.Deliver(protocol.MsgRoomJoined, r.Info())

	if full {
		r.startGame()
	}
	return nil
}

// RemovePlayer 从房间移除玩家，对局中房间变空时提前结束
func (r *Room) RemovePlayer(connID string) {
	r.playerMutex.Lock()
	player, exists := r.players[connID]
	if !exists {
		r.playerMutex.Unlock()
		return
	}
	delete(r.players, connID)
	remaining := len(r.players)
	r.playerMutex.Unlock()

	r.arenaMutex.Lock()
	r.arena.RemovePlayer(player.Actor)
	if remaining == 0 && r.Status() == models.RoomPlaying {
		r.arena.End()
	}
	r.arenaMutex.Unlock()

	player.Connection.SetRoom(nil)
	r.touch()
	log.Printf("玩家 %s 已离开房间 %s", player.Actor, r.ID)

	if remaining == 0 && r.Status() != models.RoomEnded {
		log.Printf("房间 %s 已空，等待清理", r.ID)
	}
}

// SetInput 更新玩家输入
func (r *Room) SetInput(connID string, in protocol.Input) bool {
	r.playerMutex.RLock()
	player, ok := r.players[connID]
	r.playerMutex.RUnlock()
	if !ok {
		return false
	}

	r.arenaMutex.Lock()
	defer r.arenaMutex.Unlock()
	return r.arena.SetInput(player.Actor, in)
}

// GetPlayerCount 获取玩家数量
func (r *Room) GetPlayerCount() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.players)
}

// IsEmpty 检查房间是否为空
func (r *Room) IsEmpty() bool {
	return r.GetPlayerCount() == 0
}

func (r *Room) touch() {
	r.statusMu.Lock()
	r.lastActivity = time.Now()
	r.statusMu.Unlock()
}

// ShouldCleanup 检查房间是否应该被清理
func (r *Room) ShouldCleanup() bool {
	empty := r.IsEmpty()

	r.statusMu.RLock()
	defer r.statusMu.RUnlock()

	// 游戏已结束超过2分钟
	if r.status == models.RoomEnded {
		return time.Since(r.endedAt) > 2*time.Minute
	}

	// 房间为空且超过5分钟没有活动
	if empty {
		return time.Since(r.lastActivity) > 5*time.Minute
	}

	return false
}

// gameLoop 游戏主循环，固定步长推进
func (r *Room) gameLoop() {
	ticker := time.NewTicker(time.Second / time.Duration(r.tickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if r.Status() == models.RoomPlaying {
				r.update()
			}
		case <-r.shutdown:
			return
		}
	}
}

// update 推进一帧并广播
func (r *Room) update() {
	dt := 1.0 / float64(r.tickRate)

	r.arenaMutex.Lock()
	r.arena.Step(dt)
	frame := r.arena.Frame(time.Now())
	over := r.arena.Over()
	r.arenaMutex.Unlock()

	r.broadcast(protocol.MsgFrame, frame)

	if over {
		r.endGame()
	}
}

// startGame 开始游戏
func (r *Room) startGame() {
	r.statusMu.Lock()
	if r.status != models.RoomWaiting {
		r.statusMu.Unlock()
		return
	}
	r.status = models.RoomPlaying
	r.startedAt = time.Now()
	r.matchID = uuid.New().String()
	matchID := r.matchID
	r.statusMu.Unlock()

	r.arenaMutex.Lock()
	players := r.arena.Players()
	r.arenaMutex.Unlock()

	log.Printf("房间 %s 游戏开始，对局: %s", r.ID, matchID)
	r.broadcast(protocol.MsgMatchStart, protocol.MatchStart{
		RoomID:    r.ID,
		Mode:      r.Mode,
		Seed:      r.arena.Seed(),
		TimeLimit: r.timeLimit,
		Players:   players,
	})
}

// endGame 结束游戏，广播结果并持久化
func (r *Room) endGame() {
	r.statusMu.Lock()
	if r.status != models.RoomPlaying {
		r.statusMu.Unlock()
		return
	}
	r.status = models.RoomEnded
	r.endedAt = time.Now()
	matchID, start, end := r.matchID, r.startedAt, r.endedAt
	r.statusMu.Unlock()

	r.arenaMutex.Lock()
	r.arena.End()
	result, _ := r.arena.Result()
	record, players := r.arena.Records(matchID, start, end)
	scores := r.arena.Scores().Snapshots()
	r.arenaMutex.Unlock()

	log.Printf("房间 %s 游戏结束", r.ID)
	r.broadcast(protocol.MsgMatchEnd, protocol.MatchEnd{
		RoomID:  r.ID,
		MatchID: matchID,
		Result:  result,
		Scores:  scores,
	})

	if r.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.recorder.RecordMatch(ctx, record, players); err != nil {
		log.Printf("保存对局 %s 失败: %v", matchID, err)
	}
}

// broadcast 向房间内所有玩家发送消息，相同编码只序列化一次
func (r *Room) broadcast(msgType string, payload interface{}) {
	env := protocol.Envelope{Type: msgType, Payload: payload}
	encoded := make(map[string][]byte)

	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	for _, player := range r.players {
		conn := player.Connection
		data, ok := encoded[conn.Codec.Name()]
		if !ok {
			var err error
			data, err = conn.Codec.Marshal(env)
			if err != nil {
				log.Printf("序列化消息失败: %v", err)
				continue
			}
			encoded[conn.Codec.Name()] = data
		}
		conn.push(Outbound{Binary: conn.Codec.Binary(), Data: data})
	}
}
