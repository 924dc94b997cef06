package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/protocol"
)

type memoryRecorder struct {
	mutex   sync.Mutex
	matches []models.MatchRecord
	players [][]models.PlayerMatchRecord
	done    chan struct{}
	err     error
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{done: make(chan struct{}, 1)}
}

func (m *memoryRecorder) RecordMatch(ctx context.Context, match models.MatchRecord, players []models.PlayerMatchRecord) error {
	m.mutex.Lock()
	m.matches = append(m.matches, match)
	m.players = append(m.players, players)
	m.mutex.Unlock()

	select {
	case m.done <- struct{}{}:
	default:
	}
	return m.err
}

func TestRecordersFanOut(t *testing.T) {
	a, b := newMemoryRecorder(), newMemoryRecorder()
	b.err = errors.New("写入失败")

	rs := Recorders{a, nil, b}
	err := rs.RecordMatch(context.Background(), models.MatchRecord{ID: "m1"}, nil)
	if err == nil || !errors.Is(err, b.err) {
		t.Fatalf("err = %v", err)
	}
	if len(a.matches) != 1 || len(b.matches) != 1 {
		t.Fatalf("每个接收方都应收到记录")
	}
}

func TestConnectionDeliverAfterClose(t *testing.T) {
	codec, _ := protocol.CodecFor(protocol.EncodingJSON)
	conn := NewPlayerConnection("alice", codec)

	if !conn.Deliver(protocol.MsgQueued, nil) {
		t.Fatalf("应能发送")
	}
	if !conn.Close() || conn.Close() {
		t.Fatalf("Close 只应成功一次")
	}
	if conn.Deliver(protocol.MsgQueued, nil) {
		t.Fatalf("关闭后不应发送")
	}
}

// envelopeTypes 读出连接上所有消息的类型
func envelopeTypes(t *testing.T, conn *PlayerConnection) []string {
	t.Helper()
	types := make([]string, 0)
	for {
		select {
		case o := <-conn.Send:
			var env struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(o.Data, &env); err != nil {
				t.Fatalf("解析消息失败: %v", err)
			}
			types = append(types, env.Type)
		default:
			return types
		}
	}
}

func TestRoomPlaysMatchAndRecords(t *testing.T) {
	cfg := emptyArena(t)
	cfg.Seed = "7"
	cfg.MatchTimeLimit = 0.2

	recorder := newMemoryRecorder()
	room, err := NewRoom("测试", models.ModeSingle, cfg, 60, recorder)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	if room.Info().Seed != 7 {
		t.Fatalf("seed = %d", room.Info().Seed)
	}
	if err := room.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer room.Stop()

	codec, _ := protocol.CodecFor(protocol.EncodingJSON)
	conn := NewPlayerConnection("alice", codec)
	if err := room.AddPlayer(conn, models.ShipData{}); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if conn.Room() != room || room.Status() != models.RoomPlaying {
		t.Fatalf("人数凑满后应开始: %s", room.Status())
	}

	other := NewPlayerConnection("bob", codec)
	if err := room.AddPlayer(other, models.ShipData{}); err == nil {
		t.Fatalf("房间已满时应失败")
	}

	select {
	case <-recorder.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("对局未结束")
	}

	if room.Status() != models.RoomEnded {
		t.Fatalf("status = %s", room.Status())
	}
	recorder.mutex.Lock()
	match := recorder.matches[0]
	players := recorder.players[0]
	recorder.mutex.Unlock()
	if match.ID != room.MatchID() || match.Seed != 7 || match.Winner != "alice" {
		t.Fatalf("match = %+v", match)
	}
	if len(players) != 1 || !players[0].Winner || players[0].Actor != "alice" {
		t.Fatalf("players = %+v", players)
	}

	types := envelopeTypes(t, conn)
	if len(types) < 4 {
		t.Fatalf("消息太少: %v", types)
	}
	if types[0] != protocol.MsgRoomJoined || types[1] != protocol.MsgMatchStart {
		t.Fatalf("消息顺序错误: %v", types)
	}
	if types[len(types)-1] != protocol.MsgMatchEnd || types[2] != protocol.MsgFrame {
		t.Fatalf("消息顺序错误: %v", types)
	}

	scores, over := room.Scores()
	if !over || len(scores) != 1 {
		t.Fatalf("scores=%+v over=%v", scores, over)
	}
}

func TestRoomEndsWhenEmpty(t *testing.T) {
	cfg := emptyArena(t)
	cfg.Seed = "1"
	recorder := newMemoryRecorder()
	room, err := NewRoom("测试", models.ModeSingle, cfg, 60, recorder)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	room.Start()
	defer room.Stop()

	codec, _ := protocol.CodecFor(protocol.EncodingMsgpack)
	conn := NewPlayerConnection("alice", codec)
	if err := room.AddPlayer(conn, models.ShipData{}); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	room.RemovePlayer(conn.ID)
	if conn.Room() != nil || !room.IsEmpty() {
		t.Fatalf("玩家应已离开")
	}

	select {
	case <-recorder.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("空房间应提前结束对局")
	}
	if room.Status() != models.RoomEnded {
		t.Fatalf("status = %s", room.Status())
	}
}
