// websocket.go

package game

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jacl-coder/PixelStorm-Arena/internal/auth"
	"github.com/jacl-coder/PixelStorm-Arena/internal/match"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/protocol"
)

const (
	// 写入超时时间
	writeWait = 10 * time.Second

	// 读取超时时间
	pongWait = 60 * time.Second

	// 发送 ping 的间隔时间
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 允许所有跨域请求
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// bearerToken 从查询参数或 Authorization 头获取令牌
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// handleWSConnection 处理WebSocket连接
func (s *GameServer) handleWSConnection(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Parse(s.config.Server.JWTSecret, bearerToken(r))
	if err != nil {
		http.Error(w, "未授权", http.StatusUnauthorized)
		return
	}

	codec, err := protocol.CodecFor(r.URL.Query().Get("encoding"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 升级HTTP连接为WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		return
	}

	playerConn := NewPlayerConnection(actor, codec)

	s.connMutex.Lock()
	s.connections[playerConn.ID] = playerConn
	s.connMutex.Unlock()

	log.Printf("玩家 %s 已连接，编码: %s", actor, codec.Name())
	playerConn.Deliver(protocol.MsgWelcome, protocol.WelcomePayload{
		ConnectionID: playerConn.ID,
		Actor:        actor,
		Encoding:     codec.Name(),
	})

	// 启动读写协程
	go s.readPump(conn, playerConn)
	go s.writePump(conn, playerConn)
}

// readPump 从WebSocket读取数据
func (s *GameServer) readPump(conn *websocket.Conn, player *PlayerConnection) {
	defer func() {
		s.closeConnection(player)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket错误: %v", err)
			}
			break
		}

		player.Touch(time.Now())
		s.handleMessage(player, message)
	}
}

// writePump 向WebSocket写入数据，按编码选择文本帧或二进制帧
func (s *GameServer) writePump(conn *websocket.Conn, player *PlayerConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-player.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			messageType := websocket.TextMessage
			if message.Binary {
				messageType = websocket.BinaryMessage
			}
			if err := conn.WriteMessage(messageType, message.Data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeConnection 关闭玩家连接
func (s *GameServer) closeConnection(player *PlayerConnection) {
	s.connMutex.Lock()
	if _, ok := s.connections[player.ID]; !ok {
		s.connMutex.Unlock()
		return
	}
	delete(s.connections, player.ID)
	s.connMutex.Unlock()

	s.queue.Remove(player.ID)
	if room := player.Room(); room != nil {
		room.RemovePlayer(player.ID)
	}
	player.Close()

	log.Printf("玩家 %s 已断开连接", player.Actor)
}

// handleMessage 处理接收到的消息
func (s *GameServer) handleMessage(player *PlayerConnection, data []byte) {
	var msg protocol.ClientMessage
	if err := player.Codec.Unmarshal(data, &msg); err != nil {
		log.Printf("解析消息失败: %v", err)
		s.sendError(player, "无效的消息格式")
		return
	}

	switch msg.Type {
	case protocol.MsgJoinQueue:
		s.handleJoinQueue(player, msg)
	case protocol.MsgLeaveQueue:
		s.queue.Remove(player.ID)
	case protocol.MsgCreateRoom:
		s.handleCreateRoom(player, msg)
	case protocol.MsgJoinRoom:
		s.handleJoinRoom(player, msg)
	case protocol.MsgLeaveRoom:
		s.handleLeaveRoom(player)
	case protocol.MsgInput:
		s.handlePlayerInput(player, msg)
	default:
		log.Printf("未知消息类型: %s", msg.Type)
		s.sendError(player, "未知消息类型: "+msg.Type)
	}
}

// parseMode 解析游戏模式，空值为双人对战
func parseMode(mode models.GameMode) (models.GameMode, bool) {
	switch mode {
	case "":
		return models.ModePvP, true
	case models.ModePvP, models.ModeSingle:
		return mode, true
	default:
		return "", false
	}
}

// handleJoinQueue 处理加入匹配队列
func (s *GameServer) handleJoinQueue(player *PlayerConnection, msg protocol.ClientMessage) {
	mode, ok := parseMode(msg.Mode)
	if !ok {
		s.sendError(player, "未知游戏模式")
		return
	}
	if player.Room() != nil {
		s.sendError(player, "已在房间中")
		return
	}

	s.queue.Add(match.Request{
		Actor:        player.Actor,
		ConnectionID: player.ID,
		Mode:         mode,
	})
	player.Deliver(protocol.MsgQueued, map[string]interface{}{
		"mode":     mode,
		"position": s.queue.Len(mode),
	})
}

// handleCreateRoom 处理创建房间请求，创建者直接加入
func (s *GameServer) handleCreateRoom(player *PlayerConnection, msg protocol.ClientMessage) {
	mode, ok := parseMode(msg.Mode)
	if !ok {
		s.sendError(player, "未知游戏模式")
		return
	}
	if player.Room() != nil {
		s.sendError(player, "已在房间中")
		return
	}

	name := msg.Name
	if name == "" {
		name = string(player.Actor) + " 的房间"
	}
	room, err := s.CreateRoom(name, mode)
	if err != nil {
		s.sendError(player, err.Error())
		return
	}
	if err := s.JoinRoom(player, room); err != nil {
		s.sendError(player, err.Error())
	}
}

// handleJoinRoom 处理加入房间请求
func (s *GameServer) handleJoinRoom(player *PlayerConnection, msg protocol.ClientMessage) {
	room, ok := s.GetRoom(msg.RoomID)
	if !ok {
		s.sendError(player, "房间不存在")
		return
	}
	if err := s.JoinRoom(player, room); err != nil {
		s.sendError(player, err.Error())
	}
}

// handleLeaveRoom 处理离开房间请求
func (s *GameServer) handleLeaveRoom(player *PlayerConnection) {
	room := player.Room()
	if room == nil {
		return
	}
	room.RemovePlayer(player.ID)

	// 发送离开房间确认
	player.Deliver(protocol.MsgLeaveRoomConfirm, map[string]string{"room_id": room.ID})
}

// handlePlayerInput 处理玩家输入
func (s *GameServer) handlePlayerInput(player *PlayerConnection, msg protocol.ClientMessage) {
	room := player.Room()
	if room == nil || msg.Input == nil {
		return
	}
	room.SetInput(player.ID, *msg.Input)
}

// sendError 发送错误消息
func (s *GameServer) sendError(player *PlayerConnection, message string) {
	player.Deliver(protocol.MsgError, protocol.ErrorPayload{Message: message})
}
