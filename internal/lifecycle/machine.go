// machine.go

package lifecycle

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/physics"
	"github.com/jacl-coder/PixelStorm-Arena/internal/timer"
)

// DefaultRespawnDelay 默认重生延迟(秒)
const DefaultRespawnDelay = 5.0

// RespawnTimerPrefix 重生计时器名前缀
const RespawnTimerPrefix = "respawn:"

// ErrDuplicateEntity 实体ID重复
var ErrDuplicateEntity = errors.New("实体已存在")

// RespawnTimerName 实体的重生计时器名
func RespawnTimerName(id string) string {
	return RespawnTimerPrefix + id
}

// Scorer 摧毁事件的计分接收方
type Scorer interface {
	AddKill(killer, victim models.ActorID) error
	AddEnvironmentalDeath(actor models.ActorID) error
	AddDestroyed(actor models.ActorID, category models.Category, points int) error
}

// Machine 实体生命周期状态机
type Machine struct {
	engine       physics.Engine
	timers       *timer.Manager
	scorer       Scorer
	respawnDelay float64

	mutex    sync.RWMutex
	entities map[string]*Entity
	order    []string

	// OnDestroyed 实体被摧毁后调用，position 为摧毁时的位置
	OnDestroyed func(e Entity, position models.Vector2D)
	// OnRespawned 实体重生后调用
	OnRespawned func(e Entity)
}

// NewMachine 创建状态机
func NewMachine(engine physics.Engine, timers *timer.Manager, scorer Scorer, respawnDelay float64) *Machine {
	if respawnDelay < 0 {
		respawnDelay = DefaultRespawnDelay
	}
	return &Machine{
		engine:       engine,
		timers:       timers,
		scorer:       scorer,
		respawnDelay: respawnDelay,
		entities:     make(map[string]*Entity),
	}
}

// Spawn 创建实体并挂载物理体，初始状态为存活
func (m *Machine) Spawn(spec Spec) error {
	if spec.Template.MaxHealth <= 0 {
		return fmt.Errorf("实体 %s 最大生命值必须为正", spec.ID)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.entities[spec.ID]; ok {
		return fmt.Errorf("%s: %w", spec.ID, ErrDuplicateEntity)
	}

	e := &Entity{
		spec:    spec,
		health:  spec.Template.MaxHealth,
		state:   StateAlive,
		visible: true,
	}
	e.handle = m.attach(e, spec.Velocity, spec.AngularVelocity)

	m.entities[spec.ID] = e
	m.order = append(m.order, spec.ID)
	return nil
}

func (m *Machine) attach(e *Entity, velocity models.Vector2D, angular float64) physics.Handle {
	tpl := e.spec.Template
	return m.engine.AddBody(physics.BodySpec{
		EntityID:        e.spec.ID,
		Category:        tpl.Category,
		Mass:            tpl.Mass,
		Friction:        tpl.Friction,
		Elasticity:      tpl.Elasticity,
		Radius:          tpl.Radius,
		Position:        e.spec.SpawnPoint,
		Velocity:        velocity,
		AngularVelocity: angular,
	})
}

// Damage 对实体造成伤害，返回是否生效
//
// 非存活实体上的伤害是空操作，用于吸收摧毁后才送达的碰撞事件。
func (m *Machine) Damage(id string, amount int, by models.Attribution) bool {
	if amount <= 0 {
		return false
	}

	m.mutex.Lock()
	e, ok := m.entities[id]
	if !ok || e.state != StateAlive {
		m.mutex.Unlock()
		return false
	}

	e.health -= amount
	e.lastHitBy = by
	if e.health > 0 {
		m.mutex.Unlock()
		return true
	}

	e.health = 0
	position := m.destroy(e)
	snapshot := *e
	m.mutex.Unlock()

	m.route(snapshot, by)
	if m.OnDestroyed != nil {
		m.OnDestroyed(snapshot, position)
	}
	return true
}

// destroy 调用方持有写锁
func (m *Machine) destroy(e *Entity) models.Vector2D {
	var position models.Vector2D
	if b, ok := m.engine.BodyOf(e.spec.ID); ok {
		position = b.Position
	}

	m.engine.RemoveBody(e.spec.ID)
	e.handle = physics.InvalidHandle
	e.visible = false
	e.state = StateDead
	e.deaths++

	if e.spec.Template.Respawns {
		if !m.timers.Add(RespawnTimerName(e.spec.ID), m.respawnDelay, false, false) {
			log.Printf("重生计时器已存在: %s", e.spec.ID)
		}
	}
	return position
}

// route 把摧毁事件交给计分器
func (m *Machine) route(e Entity, by models.Attribution) {
	if m.scorer == nil {
		return
	}

	var err error
	switch e.Category() {
	case models.CategoryShip:
		if by.IsPlayer() {
			err = m.scorer.AddKill(by.Actor, e.Owner())
		} else {
			err = m.scorer.AddEnvironmentalDeath(e.Owner())
		}
	case models.CategoryJunk, models.CategoryHostile:
		if by.IsPlayer() {
			err = m.scorer.AddDestroyed(by.Actor, e.Category(), e.Template().Points)
		}
	}
	if err != nil {
		log.Printf("记录摧毁事件失败 %s: %v", e.ID(), err)
	}
}

// HandleElapsed 处理到期的重生计时器，返回是否为本状态机的计时器
//
// 计时器先被消费，随后实体经 Respawning 回到 Alive。
func (m *Machine) HandleElapsed(name string) bool {
	if !strings.HasPrefix(name, RespawnTimerPrefix) {
		return false
	}
	id := strings.TrimPrefix(name, RespawnTimerPrefix)
	m.timers.Consume(name)

	m.mutex.Lock()
	e, ok := m.entities[id]
	if !ok || e.state != StateDead {
		m.mutex.Unlock()
		return true
	}

	e.state = StateRespawning
	e.health = e.spec.Template.MaxHealth
	e.lastHitBy = models.Attribution{}
	e.handle = m.attach(e, models.Vector2D{}, 0)
	e.visible = true
	e.state = StateAlive
	snapshot := *e
	m.mutex.Unlock()

	log.Printf("实体重生: %s", id)
	if m.OnRespawned != nil {
		m.OnRespawned(snapshot)
	}
	return true
}

// Get 查询实体
func (m *Machine) Get(id string) (Entity, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	e, ok := m.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Alive 实体是否存活
func (m *Machine) Alive(id string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	e, ok := m.entities[id]
	return ok && e.state == StateAlive
}

// Handle 存活实体的物理体句柄
func (m *Machine) Handle(id string) (physics.Handle, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	e, ok := m.entities[id]
	if !ok {
		return physics.InvalidHandle, false
	}
	return e.Handle()
}

// AliveOf 按创建顺序返回某类别的存活实体
func (m *Machine) AliveOf(category models.Category) []Entity {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]Entity, 0)
	for _, id := range m.order {
		e := m.entities[id]
		if e.state == StateAlive && e.spec.Template.Category == category {
			out = append(out, *e)
		}
	}
	return out
}

// All 按创建顺序返回所有实体
func (m *Machine) All() []Entity {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]Entity, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.entities[id])
	}
	return out
}

// Remove 删除实体及其物理体和重生计时器
func (m *Machine) Remove(id string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.entities[id]; !ok {
		return false
	}
	m.engine.RemoveBody(id)
	m.timers.Remove(RespawnTimerName(id))
	delete(m.entities, id)

	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Len 实体数量
func (m *Machine) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.entities)
}
