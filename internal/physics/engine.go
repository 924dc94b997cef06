// engine.go

package physics

import (
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// Handle 物理体句柄，0为无效句柄
type Handle uint64

// InvalidHandle 无效句柄
const InvalidHandle Handle = 0

// BodySpec 添加物理体的参数
type BodySpec struct {
	EntityID        string
	Category        models.Category
	Mass            float64
	Friction        float64
	Elasticity      float64
	Radius          float64
	Position        models.Vector2D
	Velocity        models.Vector2D
	Angle           float64
	AngularVelocity float64
}

// Body 物理体状态快照
type Body struct {
	Handle          Handle
	EntityID        string
	Category        models.Category
	Mass            float64
	Friction        float64
	Elasticity      float64
	Radius          float64
	Position        models.Vector2D
	Velocity        models.Vector2D
	Angle           float64
	AngularVelocity float64
}

// Contact 引擎提供的接触信息
type Contact struct {
	Point  models.Vector2D
	Normal models.Vector2D // 由 a 指向 b
	Depth  float64
}

// ContactHandler 接触回调，a 属于注册时的第一个类别，b 属于第二个
type ContactHandler func(a, b string, c Contact)

// Engine 物理引擎适配器
//
// 接触回调在 Step 内同步触发，同一步内可能对同一对物体重复触发。
type Engine interface {
	// AddBody 添加物理体，同一实体重复添加会替换旧的物理体
	AddBody(spec BodySpec) Handle
	// RemoveBody 移除实体的物理体，已移除时返回false
	RemoveBody(entityID string) bool
	// ApplyForce 在世界坐标点施加力，本步结束后清零
	ApplyForce(h Handle, force, point models.Vector2D) bool
	// SetVelocity 直接设置线速度
	SetVelocity(h Handle, v models.Vector2D) bool
	// OnContact 注册类别对的接触回调
	OnContact(a, b models.Category, handler ContactHandler)
	// Step 推进模拟
	Step(dt float64)
	// Body 查询物理体
	Body(h Handle) (Body, bool)
	// BodyOf 按实体查询物理体
	BodyOf(entityID string) (Body, bool)
}
