// entity.go

package lifecycle

import (
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/physics"
)

// State 生命周期状态
type State int

const (
	// StateAlive 存活，持有物理体
	StateAlive State = iota
	// StateDead 已摧毁，不持有物理体
	StateDead
	// StateRespawning 重生中，只在重生过程内部出现
	StateRespawning
)

// String 状态名
func (s State) String() string {
	switch s {
	case StateAlive:
		return "alive"
	case StateDead:
		return "dead"
	case StateRespawning:
		return "respawning"
	default:
		return "unknown"
	}
}

// Spec 实体创建参数
type Spec struct {
	ID              string
	Template        models.Template
	Owner           models.ActorID // 飞船所属玩家，其他实体为空
	SpawnPoint      models.Vector2D
	Velocity        models.Vector2D
	AngularVelocity float64
}

// Entity 可摧毁实体
//
// 状态和生命值只由 Machine 修改，外部拿到的都是副本。
type Entity struct {
	spec      Spec
	health    int
	state     State
	handle    physics.Handle
	visible   bool
	lastHitBy models.Attribution
	deaths    int
}

// ID 实体ID
func (e Entity) ID() string { return e.spec.ID }

// Template 实体模板
func (e Entity) Template() models.Template { return e.spec.Template }

// Category 碰撞类别
func (e Entity) Category() models.Category { return e.spec.Template.Category }

// Owner 所属参与者
func (e Entity) Owner() models.ActorID { return e.spec.Owner }

// SpawnPoint 重生点
func (e Entity) SpawnPoint() models.Vector2D { return e.spec.SpawnPoint }

// Health 当前生命值
func (e Entity) Health() int { return e.health }

// MaxHealth 最大生命值
func (e Entity) MaxHealth() int { return e.spec.Template.MaxHealth }

// State 生命周期状态
func (e Entity) State() State { return e.state }

// Visible 是否可见
func (e Entity) Visible() bool { return e.visible }

// LastHitBy 最后一次伤害来源
func (e Entity) LastHitBy() models.Attribution { return e.lastHitBy }

// Deaths 被摧毁次数
func (e Entity) Deaths() int { return e.deaths }

// Handle 物理体句柄，只有存活时有效
func (e Entity) Handle() (physics.Handle, bool) {
	if e.state != StateAlive {
		return physics.InvalidHandle, false
	}
	return e.handle, true
}

// Attribution 该实体作为伤害来源时的归属
func (e Entity) Attribution() models.Attribution {
	return models.Attribution{Actor: e.spec.Owner, Category: e.spec.Template.Category}
}
