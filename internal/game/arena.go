// arena.go

package game

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jacl-coder/PixelStorm-Arena/config"
	"github.com/jacl-coder/PixelStorm-Arena/internal/collision"
	"github.com/jacl-coder/PixelStorm-Arena/internal/lifecycle"
	"github.com/jacl-coder/PixelStorm-Arena/internal/match"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/physics"
	"github.com/jacl-coder/PixelStorm-Arena/internal/protocol"
	"github.com/jacl-coder/PixelStorm-Arena/internal/score"
	"github.com/jacl-coder/PixelStorm-Arena/internal/spawn"
	"github.com/jacl-coder/PixelStorm-Arena/internal/steering"
	"github.com/jacl-coder/PixelStorm-Arena/internal/timer"
)

// 计时器名前缀
const (
	FireTimerPrefix     = "fire:"
	CooldownTimerPrefix = "cooldown:"
)

// 出膛时与发射者表面的间隙
const muzzleGap = 2.0

var (
	// ErrArenaFull 玩家已满
	ErrArenaFull = errors.New("对局人数已满")
	// ErrPlayerExists 玩家已在对局中
	ErrPlayerExists = errors.New("玩家已在对局中")
	// ErrMatchOver 对局已结束
	ErrMatchOver = errors.New("对局已结束")
)

// FireTimerName 敌对单位的开火计时器
func FireTimerName(entityID string) string {
	return FireTimerPrefix + entityID
}

// CooldownTimerName 玩家的开火冷却计时器
func CooldownTimerName(actor models.ActorID) string {
	return CooldownTimerPrefix + string(actor)
}

// ShipEntityID 玩家飞船的实体ID
func ShipEntityID(actor models.ActorID) string {
	return "ship:" + string(actor)
}

// pilot 玩家及其飞船
type pilot struct {
	actor    models.ActorID
	entityID string
	ship     models.ShipData
	input    protocol.Input
}

// Arena 一局对战的模拟，不涉及网络，调用方负责串行访问
//
// 每帧的顺序: 控制力 -> 物理步进(同步分发接触) -> 计时器 -> 投射物老化 -> 统计 -> 对局时钟。
type Arena struct {
	cfg      config.ArenaConfig
	mode     models.GameMode
	seed     int64
	tickRate float64
	weapon   models.Weapon

	world       *physics.World
	timers      *timer.Manager
	scores      *score.Aggregator
	machine     *lifecycle.Machine
	projectiles *collision.Projectiles
	dispatcher  *collision.Dispatcher
	clock       *match.Clock

	gains    steering.Gains
	pursuers map[string]*steering.Pursuer
	players  map[models.ActorID]*pilot
	order    []models.ActorID
	effects  []models.Effect
	frameID  int64
	result   *models.MatchResult
}

// NewArena 创建对局模拟
func NewArena(cfg config.ArenaConfig, mode models.GameMode, seed int64, tickRate int) *Arena {
	if tickRate <= 0 {
		tickRate = 60
	}

	a := &Arena{
		cfg:      cfg,
		mode:     mode,
		seed:     seed,
		tickRate: float64(tickRate),
		weapon: models.Weapon{
			Damage:       cfg.ProjectileDamage,
			CooldownTime: cfg.FireCooldown,
			Speed:        cfg.ProjectileSpeed,
			LifeTime:     cfg.ProjectileLifetime,
			Radius:       cfg.ProjectileRadius,
			SpawnOffset:  models.DefaultWeapon().SpawnOffset,
		},
		world:  physics.NewWorld(cfg.Width, cfg.Height),
		timers: timer.NewManager(),
		scores: score.NewAggregator(cfg.KillBonus),
		clock:  match.NewClock(cfg.MatchTimeLimit),
		gains: steering.Gains{
			Kp:     cfg.Steering.Kp,
			Ki:     cfg.Steering.Ki,
			Kd:     cfg.Steering.Kd,
			LimMin: cfg.Steering.LimMin,
			LimMax: cfg.Steering.LimMax,
		},
		pursuers: make(map[string]*steering.Pursuer),
		players:  make(map[models.ActorID]*pilot),
	}

	a.machine = lifecycle.NewMachine(a.world, a.timers, a.scores, cfg.RespawnDelay)
	a.machine.OnDestroyed = a.onDestroyed
	a.projectiles = collision.NewProjectiles(a.world)
	a.dispatcher = collision.NewDispatcher(a.projectiles, a.machine, a.scores, a.addEffect)
	a.dispatcher.Register(a.world)
	return a
}

// Seed 生成种子
func (a *Arena) Seed() int64 { return a.seed }

// Mode 游戏模式
func (a *Arena) Mode() models.GameMode { return a.mode }

// Scores 计分器
func (a *Arena) Scores() *score.Aggregator { return a.scores }

// Machine 实体状态机
func (a *Arena) Machine() *lifecycle.Machine { return a.machine }

// World 物理世界
func (a *Arena) World() *physics.World { return a.world }

// Timers 计时器
func (a *Arena) Timers() *timer.Manager { return a.timers }

// Clock 对局时钟
func (a *Arena) Clock() *match.Clock { return a.clock }

// groups 按配置区间组合模板目录
func (a *Arena) groups() []spawn.Group {
	g := a.cfg.Groups
	return []spawn.Group{
		spawnGroup(spawn.GroupSmall, spawn.SmallStations(), g.Small),
		spawnGroup(spawn.GroupBig, spawn.BigStations(), g.Big),
		spawnGroup(spawn.GroupHostiles, spawn.Hostiles(), g.Hostiles),
	}
}

func spawnGroup(name string, templates []models.Template, c config.GroupConfig) spawn.Group {
	return spawn.Group{
		Name:      name,
		Templates: templates,
		Count:     spawn.Range{Min: c.CountMin, Max: c.CountMax},
		Velocity:  spawn.FloatRange{Min: c.VelocityMin, Max: c.VelocityMax},
		Angular:   spawn.FloatRange{Min: c.AngularMin, Max: c.AngularMax},
	}
}

// Populate 按种子生成场景实体，返回生成数量
func (a *Arena) Populate() (int, error) {
	descriptors, err := spawn.Generate(spawn.Config{
		Seed:   a.seed,
		Width:  a.cfg.Width,
		Height: a.cfg.Height,
		Groups: a.groups(),
	})
	if err != nil {
		return 0, fmt.Errorf("生成场景失败: %w", err)
	}

	for i, d := range descriptors {
		if err := a.spawnDescriptor(fmt.Sprintf("%s-%d", d.Group, i), d); err != nil {
			return i, err
		}
	}

	log.Printf("场景生成完成，种子: %d，实体数: %d", a.seed, len(descriptors))
	return len(descriptors), nil
}

// spawnDescriptor 实例化一个生成结果，敌对单位同时获得追踪控制器和开火计时器
func (a *Arena) spawnDescriptor(id string, d spawn.Descriptor) error {
	err := a.machine.Spawn(lifecycle.Spec{
		ID:              id,
		Template:        d.Template,
		SpawnPoint:      d.Position,
		Velocity:        d.Velocity,
		AngularVelocity: d.AngularVelocity,
	})
	if err != nil {
		return fmt.Errorf("创建实体失败: %w", err)
	}

	if d.Template.Category == models.CategoryHostile {
		a.pursuers[id] = steering.NewPursuer(a.gains, a.cfg.Hostile.Standoff)
		a.timers.Add(FireTimerName(id), a.cfg.Hostile.FireInterval, false, true)
	}
	return nil
}

// DefaultShip 按配置生成的飞船属性
func (a *Arena) DefaultShip() models.ShipData {
	ship := models.DefaultShipData()
	s := a.cfg.Ship
	ship.Hitpoints = s.Hitpoints
	ship.Mass = s.Mass
	ship.Friction = s.Friction
	ship.Elasticity = s.Elasticity
	ship.MovementSpeed = s.Thrust
	ship.MaxSpeed = s.MaxSpeed
	return ship
}

// spawnPoint 玩家出生点，按加入顺序左右排列
func (a *Arena) spawnPoint(index int) models.Vector2D {
	x := a.cfg.Width * 0.25
	if index%2 == 1 {
		x = a.cfg.Width * 0.75
	}
	return models.Vector2D{X: x, Y: a.cfg.Height / 2}
}

// AddPlayer 加入玩家并创建飞船，生命值不为正的飞船数据使用默认值
func (a *Arena) AddPlayer(actor models.ActorID, ship models.ShipData) (string, error) {
	if a.clock.Over() {
		return "", ErrMatchOver
	}
	if _, ok := a.players[actor]; ok {
		return "", fmt.Errorf("%s: %w", actor, ErrPlayerExists)
	}
	if len(a.players) >= a.mode.MaxPlayers() {
		return "", ErrArenaFull
	}
	if ship.Hitpoints <= 0 {
		ship = a.DefaultShip()
	}
	if ship.Radius <= 0 {
		ship.Radius = models.DefaultShipRadius
	}

	id := ShipEntityID(actor)
	err := a.machine.Spawn(lifecycle.Spec{
		ID:         id,
		Template:   ship.Template("ship"),
		Owner:      actor,
		SpawnPoint: a.spawnPoint(len(a.order)),
	})
	if err != nil {
		return "", err
	}

	a.scores.Register(actor)
	a.players[actor] = &pilot{actor: actor, entityID: id, ship: ship}
	a.order = append(a.order, actor)
	return id, nil
}

// RemovePlayer 移除玩家飞船，计分记录保留
func (a *Arena) RemovePlayer(actor models.ActorID) bool {
	p, ok := a.players[actor]
	if !ok {
		return false
	}
	a.machine.Remove(p.entityID)
	a.timers.Remove(CooldownTimerName(actor))
	delete(a.players, actor)
	for i, id := range a.order {
		if id == actor {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return true
}

// Players 按加入顺序返回玩家
func (a *Arena) Players() []models.ActorID {
	out := make([]models.ActorID, len(a.order))
	copy(out, a.order)
	return out
}

// SetInput 更新玩家输入，推力分量限制在 [-1, 1]
func (a *Arena) SetInput(actor models.ActorID, in protocol.Input) bool {
	p, ok := a.players[actor]
	if !ok {
		return false
	}
	in.Thrust.X = clampUnit(in.Thrust.X)
	in.Thrust.Y = clampUnit(in.Thrust.Y)
	p.input = in
	return true
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// Fire 玩家开火，冷却中、飞船未存活或对局结束时返回false
func (a *Arena) Fire(actor models.ActorID) bool {
	p, ok := a.players[actor]
	if !ok || a.clock.Over() {
		return false
	}
	if a.timers.Has(CooldownTimerName(actor)) {
		return false
	}
	if !a.machine.Alive(p.entityID) {
		return false
	}
	body, ok := a.world.BodyOf(p.entityID)
	if !ok {
		return false
	}

	dir := normalize(p.input.Aim)
	if dir.LenSq() == 0 {
		dir = models.Vector2D{X: math.Cos(body.Angle), Y: math.Sin(body.Angle)}
	}

	e, _ := a.machine.Get(p.entityID)
	a.launch(e, body, dir)
	a.timers.Add(CooldownTimerName(actor), a.weapon.CooldownTime, false, false)
	if err := a.scores.AddShotFired(actor); err != nil {
		log.Printf("记录开火失败 %s: %v", actor, err)
	}
	return true
}

// launch 从发射者表面沿 dir 发射投射物
func (a *Arena) launch(shooter lifecycle.Entity, body physics.Body, dir models.Vector2D) string {
	id := uuid.New().String()
	offset := body.Radius + a.weapon.Radius + muzzleGap
	a.projectiles.Fire(collision.Projectile{
		ID:       id,
		Creator:  shooter.ID(),
		By:       shooter.Attribution(),
		Damage:   a.weapon.Damage,
		LifeTime: a.weapon.LifeTime,
	},
		body.Position.Add(dir.Scale(offset)),
		body.Velocity.Add(dir.Scale(a.weapon.Speed)),
		a.weapon.Radius,
	)
	return id
}

func normalize(v models.Vector2D) models.Vector2D {
	l := v.Len()
	if l == 0 {
		return models.Vector2D{}
	}
	return v.Scale(1 / l)
}

// Step 推进一帧
func (a *Arena) Step(dt float64) {
	if dt <= 0 || a.clock.Over() {
		return
	}
	a.frameID++

	a.steerPlayers()
	a.steerHostiles(dt)

	a.world.Step(dt)

	a.timers.Tick(dt)
	for _, name := range a.timers.PollElapsed() {
		a.dispatchTimer(name)
	}

	a.projectiles.Expire(dt, a.cfg.Width, a.cfg.Height)
	a.trackShips(dt)

	if a.clock.Advance(dt) || a.scoreLimitReached() {
		a.finish()
	}
}

// steerPlayers 按输入施加推力并处理开火
func (a *Arena) steerPlayers() {
	for _, actor := range a.order {
		p := a.players[actor]
		h, ok := a.machine.Handle(p.entityID)
		if !ok {
			continue
		}
		if p.input.Thrust.LenSq() > 0 {
			body, _ := a.world.Body(h)
			a.world.ApplyForce(h, p.input.Thrust.Scale(p.ship.MovementSpeed), body.Position)
		}
		if p.input.Fire {
			a.Fire(actor)
		}
	}
}

// shipCandidates 存活飞船的位置
func (a *Arena) shipCandidates() []physics.Candidate {
	ships := a.machine.AliveOf(models.CategoryShip)
	out := make([]physics.Candidate, 0, len(ships))
	for _, s := range ships {
		if b, ok := a.world.BodyOf(s.ID()); ok {
			out = append(out, physics.Candidate{ID: s.ID(), Position: b.Position})
		}
	}
	return out
}

// steerHostiles 敌对单位追踪最近的存活飞船
//
// 控制器增益按帧标定，dt 换算为帧数。
func (a *Arena) steerHostiles(dt float64) {
	candidates := a.shipCandidates()
	frames := dt * a.tickRate

	for _, e := range a.machine.AliveOf(models.CategoryHostile) {
		pursuer, ok := a.pursuers[e.ID()]
		if !ok {
			continue
		}
		body, ok := a.world.BodyOf(e.ID())
		if !ok {
			continue
		}

		target := physics.Nearest(body.Position, candidates)
		if !target.Found {
			pursuer.Reset()
			continue
		}
		force := pursuer.Steer(target.Offset, frames)
		if force.LenSq() > 0 {
			a.world.ApplyForce(body.Handle, force, body.Position)
		}
	}
}

// dispatchTimer 按前缀分发到期的计时器
func (a *Arena) dispatchTimer(name string) {
	switch {
	case a.machine.HandleElapsed(name):
	case strings.HasPrefix(name, FireTimerPrefix):
		a.timers.Consume(name)
		a.hostileFire(strings.TrimPrefix(name, FireTimerPrefix))
	default:
		a.timers.Consume(name)
	}
}

// hostileFire 敌对单位向射程内最近的飞船开火
func (a *Arena) hostileFire(id string) bool {
	e, ok := a.machine.Get(id)
	if !ok || e.State() != lifecycle.StateAlive {
		return false
	}
	body, ok := a.world.BodyOf(id)
	if !ok {
		return false
	}

	target := physics.Nearest(body.Position, a.shipCandidates())
	if !target.Found || target.Distance > a.cfg.Hostile.ShootDistance {
		return false
	}
	a.launch(e, body, normalize(target.Offset))
	return true
}

// trackShips 限制飞船速度并累计飞行距离
func (a *Arena) trackShips(dt float64) {
	for _, actor := range a.order {
		p := a.players[actor]
		h, ok := a.machine.Handle(p.entityID)
		if !ok {
			continue
		}
		body, ok := a.world.Body(h)
		if !ok {
			continue
		}

		speed := body.Velocity.Len()
		if p.ship.MaxSpeed > 0 && speed > p.ship.MaxSpeed {
			a.world.SetVelocity(h, body.Velocity.Scale(p.ship.MaxSpeed/speed))
			speed = p.ship.MaxSpeed
		}
		if err := a.scores.AddDistance(actor, speed*dt, speed); err != nil {
			log.Printf("记录飞行距离失败 %s: %v", actor, err)
		}
	}
}

func (a *Arena) scoreLimitReached() bool {
	if a.cfg.ScoreLimit <= 0 {
		return false
	}
	for _, r := range a.scores.Snapshots() {
		if r.Score >= a.cfg.ScoreLimit {
			return true
		}
	}
	return false
}

// End 提前结束对局
func (a *Arena) End() {
	if a.result == nil {
		a.finish()
	}
}

// finish 冻结计分并计算结果
func (a *Arena) finish() {
	a.clock.End()
	a.scores.Freeze()
	result := a.scores.Result()
	a.result = &result

	if result.Tie {
		log.Printf("对局结束，平局")
	} else {
		log.Printf("对局结束，胜者: %s", result.Winner)
	}
}

// Over 对局是否结束
func (a *Arena) Over() bool { return a.result != nil }

// Result 对局结果，未结束时第二个返回值为false
func (a *Arena) Result() (models.MatchResult, bool) {
	if a.result == nil {
		return models.MatchResult{}, false
	}
	return *a.result, true
}

func (a *Arena) addEffect(e models.Effect) {
	a.effects = append(a.effects, e)
}

// DrainEffects 取出并清空待发送的特效
func (a *Arena) DrainEffects() []models.Effect {
	out := a.effects
	a.effects = nil
	return out
}

// onDestroyed 摧毁特效，敌对单位同时停止追踪和开火
func (a *Arena) onDestroyed(e lifecycle.Entity, position models.Vector2D) {
	size := models.EffectNormal
	if e.Category() == models.CategoryHostile {
		size = models.EffectBig
		a.timers.Remove(FireTimerName(e.ID()))
		delete(a.pursuers, e.ID())
	}
	a.addEffect(models.Effect{Position: position, Size: size})

	if e.Category() == models.CategoryShip {
		log.Printf("飞船被摧毁: %s，来源: %s", e.Owner(), e.LastHitBy().Actor)
	}
}

// Frame 当前帧快照，同时取出待发送的特效
func (a *Arena) Frame(now time.Time) protocol.Frame {
	frame := protocol.Frame{
		FrameID:     a.frameID,
		Timestamp:   now.UnixMilli(),
		Elapsed:     a.clock.Elapsed(),
		Remaining:   a.clock.Remaining(),
		Over:        a.Over(),
		Entities:    make([]protocol.EntityState, 0, a.machine.Len()),
		Projectiles: make([]protocol.ProjectileState, 0, a.projectiles.Len()),
		Effects:     a.DrainEffects(),
		Scores:      a.scores.Snapshots(),
	}

	for _, e := range a.machine.All() {
		var body physics.Body
		hasBody := false
		if e.State() == lifecycle.StateAlive {
			body, hasBody = a.world.BodyOf(e.ID())
		}
		frame.Entities = append(frame.Entities, protocol.ConvertEntity(e, body, hasBody))
	}

	for _, b := range a.world.Bodies() {
		if b.Category != models.CategoryProjectile {
			continue
		}
		proj, ok := a.projectiles.Get(b.EntityID)
		if !ok {
			continue
		}
		frame.Projectiles = append(frame.Projectiles, protocol.ConvertProjectile(b, proj.By.Actor))
	}
	return frame
}

// Records 生成持久化用的对局记录
func (a *Arena) Records(matchID string, start, end time.Time) (models.MatchRecord, []models.PlayerMatchRecord) {
	result, _ := a.Result()
	record := models.MatchRecord{
		ID:        matchID,
		GameMode:  a.mode,
		Seed:      a.seed,
		StartTime: start,
		EndTime:   end,
		Winner:    result.Winner,
		Tie:       result.Tie,
		Duration:  a.clock.Elapsed(),
	}

	snapshots := a.scores.Snapshots()
	players := make([]models.PlayerMatchRecord, 0, len(snapshots))
	for _, s := range snapshots {
		players = append(players, models.PlayerMatchRecord{
			MatchID:     matchID,
			ScoreRecord: s,
			Winner:      !result.Tie && result.Winner == s.Actor,
		})
	}
	return record, players
}
