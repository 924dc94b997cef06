package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jacl-coder/PixelStorm-Arena/config"
	"github.com/jacl-coder/PixelStorm-Arena/internal/match"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/protocol"
)

const (
	// 匹配检查间隔
	matchInterval = 500 * time.Millisecond
	// 不在房间内的连接超过该时长没有消息即断开
	connectionIdleTimeout = 5 * time.Minute
)

// GameServer 游戏服务器
type GameServer struct {
	config      *config.Config
	rooms       map[string]*Room
	roomsMutex  sync.RWMutex
	httpServer  *http.Server
	connections map[string]*PlayerConnection
	connMutex   sync.RWMutex
	queue       *match.Queue

	profiles ProfileSource
	recorder Recorder

	// 关闭信号
	shutdown  chan struct{}
	isRunning bool
}

// Outbound 待发送的消息
type Outbound struct {
	Binary bool
	Data   []byte
}

// PlayerConnection 玩家连接
type PlayerConnection struct {
	ID    string
	Actor models.ActorID
	Codec protocol.Codec

	// 通信通道
	Send chan Outbound

	mutex      sync.Mutex
	room       *Room
	closed     bool
	lastActive time.Time
}

// NewPlayerConnection 创建玩家连接
func NewPlayerConnection(actor models.ActorID, codec protocol.Codec) *PlayerConnection {
	return &PlayerConnection{
		ID:         uuid.New().String(),
		Actor:      actor,
		Codec:      codec,
		Send:       make(chan Outbound, 256),
		lastActive: time.Now(),
	}
}

// Room 当前所在房间
func (c *PlayerConnection) Room() *Room {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.room
}

// Touch 记录最近一次收到消息的时间
func (c *PlayerConnection) Touch(now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lastActive = now
}

// LastActive 最近一次收到消息的时间
func (c *PlayerConnection) LastActive() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastActive
}

// SetRoom 设置当前房间
func (c *PlayerConnection) SetRoom(room *Room) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.room = room
}

// Deliver 按连接的编码发送消息，通道已满或已关闭时返回false
func (c *PlayerConnection) Deliver(msgType string, payload interface{}) bool {
	data, err := c.Codec.Marshal(protocol.Envelope{Type: msgType, Payload: payload})
	if err != nil {
		log.Printf("序列化消息失败: %v", err)
		return false
	}
	return c.push(Outbound{Binary: c.Codec.Binary(), Data: data})
}

func (c *PlayerConnection) push(o Outbound) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- o:
		return true
	default:
		return false
	}
}

// Close 关闭发送通道，重复调用返回false
func (c *PlayerConnection) Close() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	close(c.Send)
	return true
}

// NewGameServer 创建新的游戏服务器，profiles 和 recorder 可以为nil
func NewGameServer(cfg *config.Config, profiles ProfileSource, recorder Recorder) *GameServer {
	return &GameServer{
		config:      cfg,
		rooms:       make(map[string]*Room),
		connections: make(map[string]*PlayerConnection),
		queue:       match.NewQueue(),
		profiles:    profiles,
		recorder:    recorder,
		shutdown:    make(chan struct{}),
	}
}

// Start 启动游戏服务器
func (s *GameServer) Start() error {
	if s.isRunning {
		return fmt.Errorf("服务器已经在运行")
	}

	addr := fmt.Sprintf(":%d", s.config.Server.GamePort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听端口失败: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		log.Printf("游戏服务器启动，监听端口: %d", s.config.Server.GamePort)
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP服务器错误: %v", err)
		}
	}()

	// 启动房间管理和匹配
	go s.roomManager()
	go s.matchmaker()

	s.isRunning = true
	return nil
}

// Run 启动并阻塞直到 ctx 结束
func (s *GameServer) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Stop 停止游戏服务器
func (s *GameServer) Stop() error {
	if !s.isRunning {
		return nil
	}

	close(s.shutdown)

	// 关闭所有房间
	s.roomsMutex.Lock()
	for _, room := range s.rooms {
		room.Stop()
	}
	s.roomsMutex.Unlock()

	// 关闭所有连接
	s.connMutex.Lock()
	for _, conn := range s.connections {
		conn.Close()
	}
	s.connMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP服务器关闭错误: %w", err)
	}

	s.isRunning = false
	log.Println("游戏服务器已停止")
	return nil
}

// Handler 创建HTTP处理器
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket 连接端点
	mux.HandleFunc("/ws", s.handleWSConnection)

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 房间列表
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		rooms := s.ListRooms()
		infos := make([]models.RoomInfo, 0, len(rooms))
		for _, room := range rooms {
			infos = append(infos, room.Info())
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(infos)
	})

	return mux
}

// roomManager 房间管理器
func (s *GameServer) roomManager() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupRooms()
			s.cleanupConnections(time.Now())
		case <-s.shutdown:
			return
		}
	}
}

// cleanupRooms 清理空闲房间
func (s *GameServer) cleanupRooms() {
	s.roomsMutex.Lock()
	defer s.roomsMutex.Unlock()

	for id, room := range s.rooms {
		if room.ShouldCleanup() {
			log.Printf("清理空闲房间: %s", id)
			room.Stop()
			delete(s.rooms, id)
		}
	}
}

// cleanupConnections 断开房间外长时间没有消息的连接
func (s *GameServer) cleanupConnections(now time.Time) {
	s.connMutex.RLock()
	var idle []*PlayerConnection
	for _, conn := range s.connections {
		if conn.Room() == nil && now.Sub(conn.LastActive()) > connectionIdleTimeout {
			idle = append(idle, conn)
		}
	}
	s.connMutex.RUnlock()

	for _, conn := range idle {
		log.Printf("连接 %s 空闲超时", conn.ID)
		s.closeConnection(conn)
	}
}

// matchmaker 定期把凑满人数的匹配组放进新房间
func (s *GameServer) matchmaker() {
	ticker := time.NewTicker(matchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processMatches()
		case <-s.shutdown:
			return
		}
	}
}

// processMatches 处理一轮匹配
func (s *GameServer) processMatches() {
	for _, group := range s.queue.Match() {
		mode := group[0].Mode
		room, err := s.CreateRoom("匹配房间", mode)
		if err != nil {
			log.Printf("创建匹配房间失败: %v", err)
			continue
		}

		for _, req := range group {
			conn, ok := s.GetConnection(req.ConnectionID)
			if !ok {
				continue
			}
			if err := s.JoinRoom(conn, room); err != nil {
				conn.Deliver(protocol.MsgError, protocol.ErrorPayload{Message: err.Error()})
			}
		}
	}
}

// CreateRoom 创建并启动游戏房间
func (s *GameServer) CreateRoom(name string, mode models.GameMode) (*Room, error) {
	s.roomsMutex.Lock()
	defer s.roomsMutex.Unlock()

	if limit := s.config.Server.MaxRoomCount; limit > 0 && len(s.rooms) >= limit {
		return nil, fmt.Errorf("房间数量已达上限: %d", limit)
	}

	room, err := NewRoom(name, mode, s.config.Arena, s.config.Server.TickRate, s.recorder)
	if err != nil {
		return nil, fmt.Errorf("创建房间失败: %w", err)
	}
	s.rooms[room.ID] = room

	if err := room.Start(); err != nil {
		return nil, err
	}

	log.Printf("创建房间: %s, 模式: %s, 最大玩家数: %d", room.ID, mode, room.MaxPlayers)
	return room, nil
}

// JoinRoom 加载玩家飞船后加入房间
func (s *GameServer) JoinRoom(conn *PlayerConnection, room *Room) error {
	if conn.Room() != nil {
		return fmt.Errorf("已在房间中")
	}
	s.queue.Remove(conn.ID)
	return room.AddPlayer(conn, s.loadShip(conn.Actor))
}

// loadShip 读取玩家资料中的飞船，失败时使用房间默认飞船
func (s *GameServer) loadShip(actor models.ActorID) models.ShipData {
	if s.profiles == nil {
		return models.ShipData{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	profile, err := s.profiles.GetOrCreate(ctx, string(actor))
	if err != nil {
		log.Printf("读取玩家资料失败 %s: %v", actor, err)
		return models.ShipData{}
	}
	return profile.Ship
}

// GetRoom 获取房间
func (s *GameServer) GetRoom(roomID string) (*Room, bool) {
	s.roomsMutex.RLock()
	defer s.roomsMutex.RUnlock()

	room, exists := s.rooms[roomID]
	return room, exists
}

// ListRooms 列出所有房间
func (s *GameServer) ListRooms() []*Room {
	s.roomsMutex.RLock()
	defer s.roomsMutex.RUnlock()

	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}

	return rooms
}

// RoomScores 房间的实时计分，供统计接口使用
func (s *GameServer) RoomScores(roomID string) ([]models.ScoreRecord, bool, bool) {
	room, ok := s.GetRoom(roomID)
	if !ok {
		return nil, false, false
	}
	scores, over := room.Scores()
	return scores, over, true
}

// GetConnection 获取连接
func (s *GameServer) GetConnection(id string) (*PlayerConnection, bool) {
	s.connMutex.RLock()
	defer s.connMutex.RUnlock()

	conn, ok := s.connections[id]
	return conn, ok
}

// QueueLengths 各模式的排队人数
func (s *GameServer) QueueLengths() map[models.GameMode]int {
	return s.queue.Lengths()
}
