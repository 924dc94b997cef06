package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jacl-coder/PixelStorm-Arena/config"
	"github.com/jacl-coder/PixelStorm-Arena/internal/auth"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

type fakeRooms map[string][]models.ScoreRecord

func (f fakeRooms) RoomScores(roomID string) ([]models.ScoreRecord, bool, bool) {
	scores, ok := f[roomID]
	return scores, false, ok
}

type fakeLeaderboard struct {
	mutex   sync.Mutex
	calls   int
	entries []models.LeaderboardEntry
	ranks   map[models.ActorID]int
}

func (f *fakeLeaderboard) GetLeaderboard(ctx context.Context, scoreType models.LeaderboardType, limit int) ([]models.LeaderboardEntry, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeLeaderboard) GetPlayerRank(ctx context.Context, actor models.ActorID, scoreType models.LeaderboardType) (int, error) {
	if rank, ok := f.ranks[actor]; ok {
		return rank, nil
	}
	return -1, nil
}

type fakeProfiles struct {
	mutex    sync.Mutex
	profiles map[string]*models.PlayerProfile
}

func (f *fakeProfiles) Get(ctx context.Context, name string) (*models.PlayerProfile, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	p, ok := f.profiles[name]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) GetOrCreate(ctx context.Context, name string) (*models.PlayerProfile, error) {
	p, err := f.Get(ctx, name)
	if err == models.ErrProfileNotFound {
		return models.NewPlayerProfile(name), nil
	}
	return p, err
}

func (f *fakeProfiles) Put(ctx context.Context, profile *models.PlayerProfile) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	cp := *profile
	f.profiles[profile.Name] = &cp
	return nil
}

type fakeHistory []models.PlayerMatchRecord

func (f fakeHistory) RecentMatches(ctx context.Context, actor models.ActorID, limit int) ([]models.PlayerMatchRecord, error) {
	out := make([]models.PlayerMatchRecord, 0)
	for _, r := range f {
		if r.Actor == actor && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type rawResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	return &cfg
}

func do(t *testing.T, h http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, rawResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp rawResponse
	if rec.Code != http.StatusNotModified && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("解析响应失败: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, resp
}

func TestTokenIssueAndValidate(t *testing.T) {
	cfg := testConfig(t)
	h := NewGateway(cfg, Dependencies{}).Handler()

	rec, resp := do(t, h, http.MethodPost, "/auth/token", `{"name":" alice "}`, "")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("code=%d resp=%+v", rec.Code, resp)
	}
	var data TokenData
	json.Unmarshal(resp.Data, &data)
	actor, err := auth.Parse(cfg.Server.JWTSecret, data.Token)
	if err != nil || actor != "alice" || data.Actor != "alice" {
		t.Fatalf("actor=%q err=%v", actor, err)
	}

	rec, _ = do(t, h, http.MethodGet, "/auth/validate", "", data.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate code = %d", rec.Code)
	}
	rec, _ = do(t, h, http.MethodGet, "/auth/validate", "", "garbage")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage code = %d", rec.Code)
	}

	for _, body := range []string{`{"name":""}`, `{"name":"a:b"}`, `not json`} {
		if rec, _ := do(t, h, http.MethodPost, "/auth/token", body, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q code = %d", body, rec.Code)
		}
	}
	if rec, _ := do(t, h, http.MethodGet, "/auth/token", "", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET code = %d", rec.Code)
	}
}

func TestRoomScores(t *testing.T) {
	cfg := testConfig(t)
	rooms := fakeRooms{"r1": {{Actor: "alice", Score: 25, Kills: 1}}}
	h := NewGateway(cfg, Dependencies{Rooms: rooms}).Handler()

	rec, resp := do(t, h, http.MethodGet, "/stats/rooms/r1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var data RoomScoresData
	json.Unmarshal(resp.Data, &data)
	if data.RoomID != "r1" || len(data.Scores) != 1 || data.Scores[0].Score != 25 {
		t.Fatalf("data = %+v", data)
	}

	if rec, _ := do(t, h, http.MethodGet, "/stats/rooms/missing", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing code = %d", rec.Code)
	}

	bare := NewGateway(cfg, Dependencies{}).Handler()
	if rec, _ := do(t, bare, http.MethodGet, "/stats/rooms/r1", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil directory code = %d", rec.Code)
	}
}

func TestLeaderboardIsCached(t *testing.T) {
	cfg := testConfig(t)
	board := &fakeLeaderboard{
		entries: []models.LeaderboardEntry{{Actor: "alice", Rank: 1}, {Actor: "bob", Rank: 2}},
		ranks:   map[models.ActorID]int{"alice": 1},
	}
	h := NewGateway(cfg, Dependencies{Leaderboard: board}).Handler()

	rec, resp := do(t, h, http.MethodGet, "/stats/leaderboard?type=kills&limit=1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var entries []models.LeaderboardEntry
	json.Unmarshal(resp.Data, &entries)
	if len(entries) != 1 || entries[0].Actor != "alice" {
		t.Fatalf("entries = %+v", entries)
	}
	etag := rec.Header().Get("ETag")

	rec, _ = do(t, h, http.MethodGet, "/stats/leaderboard?type=kills&limit=1", "", "")
	if rec.Header().Get("X-Cache") != "HIT" || board.calls != 1 {
		t.Fatalf("第二次请求应命中缓存, calls=%d", board.calls)
	}
	if etag == "" {
		etag = rec.Header().Get("ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/stats/leaderboard?type=kills&limit=1", nil)
	req.Header.Set("If-None-Match", etag)
	nm := httptest.NewRecorder()
	h.ServeHTTP(nm, req)
	if nm.Code != http.StatusNotModified {
		t.Fatalf("If-None-Match code = %d", nm.Code)
	}

	if rec, _ := do(t, h, http.MethodGet, "/stats/leaderboard?type=bogus", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus type code = %d", rec.Code)
	}

	rec, resp = do(t, h, http.MethodGet, "/stats/rank/alice", "", "")
	var rank RankData
	json.Unmarshal(resp.Data, &rank)
	if rec.Code != http.StatusOK || rank.Rank != 1 || rank.Type != models.LeaderboardScore {
		t.Fatalf("rank = %+v", rank)
	}
	if rec, _ := do(t, h, http.MethodGet, "/stats/rank/carol", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unranked code = %d", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	cfg := testConfig(t)
	history := fakeHistory{
		{MatchID: "m1", ScoreRecord: models.ScoreRecord{Actor: "alice"}},
		{MatchID: "m2", ScoreRecord: models.ScoreRecord{Actor: "bob"}},
		{MatchID: "m3", ScoreRecord: models.ScoreRecord{Actor: "alice"}, Winner: true},
	}
	h := NewGateway(cfg, Dependencies{History: history}).Handler()

	rec, resp := do(t, h, http.MethodGet, "/stats/history/alice?limit=5", "", "")
	var records []models.PlayerMatchRecord
	json.Unmarshal(resp.Data, &records)
	if rec.Code != http.StatusOK || len(records) != 2 || records[1].MatchID != "m3" {
		t.Fatalf("records = %+v", records)
	}
}

func TestProfileUpdateRequiresOwner(t *testing.T) {
	cfg := testConfig(t)
	store := &fakeProfiles{profiles: make(map[string]*models.PlayerProfile)}
	h := NewGateway(cfg, Dependencies{Profiles: store}).Handler()

	alice, _ := auth.Issue(cfg.Server.JWTSecret, "alice", time.Minute)
	bob, _ := auth.Issue(cfg.Server.JWTSecret, "bob", time.Minute)

	if rec, _ := do(t, h, http.MethodGet, "/profiles/alice", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown profile code = %d", rec.Code)
	}

	ship := models.DefaultShipData()
	ship.Hitpoints = 8
	body, _ := json.Marshal(UpdateShipRequest{Ship: ship})

	if rec, _ := do(t, h, http.MethodPut, "/profiles/alice", string(body), ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token code = %d", rec.Code)
	}
	if rec, _ := do(t, h, http.MethodPut, "/profiles/alice", string(body), bob); rec.Code != http.StatusForbidden {
		t.Fatalf("other actor code = %d", rec.Code)
	}
	if rec, _ := do(t, h, http.MethodPut, "/profiles/alice", `{"ship":{"hitpoints":0}}`, alice); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid ship code = %d", rec.Code)
	}
	if rec, _ := do(t, h, http.MethodPut, "/profiles/alice", string(body), alice); rec.Code != http.StatusOK {
		t.Fatalf("update code = %d", rec.Code)
	}

	stored, _ := store.Get(context.Background(), "alice")
	stored.Totals = models.TotalStats{Matches: 4, Wins: 1, Kills: 6, Deaths: 3, ShotsFired: 10, ShotsHit: 5}
	store.Put(context.Background(), stored)

	rec, resp := do(t, h, http.MethodGet, "/profiles/alice", "", "")
	var info struct {
		Ship       models.ShipData  `json:"ship"`
		Statistics PlayerStatistics `json:"statistics"`
	}
	json.Unmarshal(resp.Data, &info)
	if rec.Code != http.StatusOK || info.Ship.Hitpoints != 8 {
		t.Fatalf("info = %+v", info)
	}
	if info.Statistics.WinRate != 0.25 || info.Statistics.KD != 2 || info.Statistics.Accuracy != 0.5 || info.Statistics.AverageKill != 1.5 {
		t.Fatalf("statistics = %+v", info.Statistics)
	}
}

func TestForwardToGameService(t *testing.T) {
	cfg := testConfig(t)
	var gotPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("[]"))
	}))
	defer backend.Close()

	g := NewGateway(cfg, Dependencies{})
	h := g.Handler()
	token, _ := auth.Issue(cfg.Server.JWTSecret, "alice", time.Minute)

	if rec, _ := do(t, h, http.MethodGet, "/game/rooms", "", token); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no service code = %d", rec.Code)
	}
	if err := g.RegisterService(ServiceGame, backend.URL); err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	if rec, _ := do(t, h, http.MethodGet, "/game/rooms", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token code = %d", rec.Code)
	}

	rec, _ := do(t, h, http.MethodGet, "/game/rooms", "", token)
	if rec.Code != http.StatusOK || gotPath != "/rooms" || rec.Body.String() != "[]" {
		t.Fatalf("code=%d path=%q body=%q", rec.Code, gotPath, rec.Body.String())
	}

	rec, resp := do(t, h, http.MethodGet, "/services", "", "")
	var services map[ServiceType][]ServiceInstance
	json.Unmarshal(resp.Data, &services)
	if rec.Code != http.StatusOK || len(services[ServiceGame]) != 1 {
		t.Fatalf("services = %+v", services)
	}

	if err := g.RegisterService(ServiceGame, "not a url"); err == nil {
		t.Fatalf("无效URL应失败")
	}
	if !g.UnregisterService(ServiceGame, services[ServiceGame][0].ID) {
		t.Fatalf("注销应成功")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, 2)
	now := time.Now()

	if !rl.allowRequest("1.1.1.1", now) || !rl.allowRequest("1.1.1.1", now) {
		t.Fatalf("前两次应允许")
	}
	if rl.allowRequest("1.1.1.1", now) {
		t.Fatalf("同一秒内超过突发上限应拒绝")
	}
	if !rl.allowRequest("2.2.2.2", now) {
		t.Fatalf("不同客户端独立计数")
	}
	if !rl.allowRequest("1.1.1.1", now.Add(2*time.Second)) {
		t.Fatalf("突发窗口过后应允许")
	}
	if rl.allowRequest("1.1.1.1", now.Add(3*time.Second)) {
		t.Fatalf("超过每分钟上限应拒绝")
	}
	if !rl.allowRequest("1.1.1.1", now.Add(2*time.Minute)) {
		t.Fatalf("一分钟后应恢复")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("codes = %d, %d", first.Code, second.Code)
	}
}

func TestCORSPreflightAndSecurityHeaders(t *testing.T) {
	h := NewGateway(testConfig(t), Dependencies{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/profiles/alice", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight code=%d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("缺少安全头")
	}
}

func TestMemoryCacheEviction(t *testing.T) {
	c := NewMemoryCache(2)
	now := time.Now()
	c.Set("a", &CacheEntry{ExpiresAt: now.Add(time.Second)}, now)
	c.Set("b", &CacheEntry{ExpiresAt: now.Add(time.Minute)}, now)
	c.Set("c", &CacheEntry{ExpiresAt: now.Add(time.Minute)}, now)

	if c.Len() != 2 || c.Get("a", now) != nil {
		t.Fatalf("最早过期的条目应被淘汰")
	}
	if c.Get("b", now.Add(2*time.Minute)) != nil {
		t.Fatalf("过期条目不应返回")
	}
}
