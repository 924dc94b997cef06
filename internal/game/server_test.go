package game

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jacl-coder/PixelStorm-Arena/config"
	"github.com/jacl-coder/PixelStorm-Arena/internal/auth"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/protocol"
)

func testServer(t *testing.T) (*GameServer, *httptest.Server) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	cfg.Arena.Groups = config.GroupsConfig{}
	cfg.Arena.Seed = "3"

	s := NewGameServer(&cfg, nil, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, secret string, actor models.ActorID) *websocket.Conn {
	t.Helper()
	token, err := auth.Issue(secret, actor, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type rawEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil 读取消息直到类型匹配
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) rawEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var env rawEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("等待 %s 失败: %v", msgType, err)
		}
		if env.Type == msgType {
			return env
		}
	}
}

func TestHealthAndRooms(t *testing.T) {
	s, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()

	room, err := s.CreateRoom("测试", models.ModePvP)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	defer room.Stop()

	resp, err = http.Get(ts.URL + "/rooms")
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	defer resp.Body.Close()
	var infos []models.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("解析房间列表失败: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != room.ID || infos[0].Seed != 3 {
		t.Fatalf("infos = %+v", infos)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	_, ts := testServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=bad"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("无效令牌应被拒绝")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestWebSocketCreateRoomStartsSingleMatch(t *testing.T) {
	s, ts := testServer(t)
	conn := dial(t, ts, s.config.Server.JWTSecret, "alice")

	welcome := readUntil(t, conn, protocol.MsgWelcome)
	var w protocol.WelcomePayload
	json.Unmarshal(welcome.Payload, &w)
	if w.Actor != "alice" || w.Encoding != protocol.EncodingJSON {
		t.Fatalf("welcome = %+v", w)
	}

	conn.WriteJSON(protocol.ClientMessage{Type: protocol.MsgCreateRoom, Mode: models.ModeSingle})
	readUntil(t, conn, protocol.MsgRoomJoined)
	start := readUntil(t, conn, protocol.MsgMatchStart)
	var ms protocol.MatchStart
	json.Unmarshal(start.Payload, &ms)
	if ms.Seed != 3 || len(ms.Players) != 1 || ms.Players[0] != "alice" {
		t.Fatalf("match start = %+v", ms)
	}

	conn.WriteJSON(protocol.ClientMessage{
		Type:  protocol.MsgInput,
		Input: &protocol.Input{Thrust: models.Vector2D{X: 1}},
	})
	fe := readUntil(t, conn, protocol.MsgFrame)
	var f protocol.Frame
	json.Unmarshal(fe.Payload, &f)
	if len(f.Entities) != 1 || f.Entities[0].Owner != "alice" {
		t.Fatalf("frame entities = %+v", f.Entities)
	}

	room, ok := s.GetRoom(ms.RoomID)
	if !ok {
		t.Fatalf("房间不存在")
	}
	defer room.Stop()
	scores, _, ok := s.RoomScores(room.ID)
	if !ok || len(scores) != 1 {
		t.Fatalf("scores = %+v", scores)
	}
}

func TestWebSocketQueueMatchesPvP(t *testing.T) {
	s, ts := testServer(t)
	alice := dial(t, ts, s.config.Server.JWTSecret, "alice")
	bob := dial(t, ts, s.config.Server.JWTSecret, "bob")
	readUntil(t, alice, protocol.MsgWelcome)
	readUntil(t, bob, protocol.MsgWelcome)

	alice.WriteJSON(protocol.ClientMessage{Type: protocol.MsgJoinQueue, Mode: models.ModePvP})
	bob.WriteJSON(protocol.ClientMessage{Type: protocol.MsgJoinQueue, Mode: models.ModePvP})
	readUntil(t, alice, protocol.MsgQueued)
	readUntil(t, bob, protocol.MsgQueued)

	s.processMatches()

	a := readUntil(t, alice, protocol.MsgMatchStart)
	b := readUntil(t, bob, protocol.MsgMatchStart)
	var ma, mb protocol.MatchStart
	json.Unmarshal(a.Payload, &ma)
	json.Unmarshal(b.Payload, &mb)
	if ma.RoomID == "" || ma.RoomID != mb.RoomID || len(ma.Players) != 2 {
		t.Fatalf("match start = %+v / %+v", ma, mb)
	}
	if room, ok := s.GetRoom(ma.RoomID); ok {
		room.Stop()
	}
	if s.QueueLengths()[models.ModePvP] != 0 {
		t.Fatalf("队列应已清空")
	}
}

func TestWebSocketMsgpackEncoding(t *testing.T) {
	s, ts := testServer(t)
	token, _ := auth.Issue(s.config.Server.JWTSecret, "alice", time.Minute)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?encoding=msgpack&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if messageType != websocket.BinaryMessage {
		t.Fatalf("msgpack 应使用二进制帧")
	}

	codec, _ := protocol.CodecFor(protocol.EncodingMsgpack)
	var env struct {
		Type    string                  `json:"type"`
		Payload protocol.WelcomePayload `json:"payload"`
	}
	if err := codec.Unmarshal(data, &env); err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if env.Type != protocol.MsgWelcome || env.Payload.Encoding != protocol.EncodingMsgpack {
		t.Fatalf("env = %+v", env)
	}
}

func TestIdleConnectionsClosed(t *testing.T) {
	s, _ := testServer(t)
	codec, _ := protocol.CodecFor(protocol.EncodingJSON)

	idle := NewPlayerConnection("alice", codec)
	active := NewPlayerConnection("bob", codec)
	playing := NewPlayerConnection("carol", codec)
	room, err := s.CreateRoom("测试房间", models.ModeSingle)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	t.Cleanup(room.Stop)
	playing.SetRoom(room)

	now := time.Now()
	idle.Touch(now.Add(-connectionIdleTimeout - time.Second))
	active.Touch(now)
	playing.Touch(now.Add(-connectionIdleTimeout - time.Second))

	s.connMutex.Lock()
	for _, c := range []*PlayerConnection{idle, active, playing} {
		s.connections[c.ID] = c
	}
	s.connMutex.Unlock()

	s.cleanupConnections(now)

	if _, ok := s.GetConnection(idle.ID); ok {
		t.Fatalf("空闲连接应被断开")
	}
	if idle.Deliver(protocol.MsgError, protocol.ErrorPayload{Message: "x"}) {
		t.Fatalf("已断开的连接不应再接收消息")
	}
	if _, ok := s.GetConnection(active.ID); !ok {
		t.Fatalf("活跃连接不应被断开")
	}
	if _, ok := s.GetConnection(playing.ID); !ok {
		t.Fatalf("房间内的连接不应被断开")
	}
}
