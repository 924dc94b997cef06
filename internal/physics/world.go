// world.go

package physics

import (
	"math"
	"sort"
	"sync"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

type pairKey struct {
	a, b models.Category
}

type body struct {
	Body
	force  models.Vector2D
	torque float64
}

// World 内存物理世界: 半隐式欧拉积分 + 圆形碰撞
type World struct {
	Width  float64
	Height float64

	mutex    sync.RWMutex
	nextID   Handle
	bodies   map[Handle]*body
	byEntity map[string]Handle
	handlers map[pairKey]ContactHandler
}

// NewWorld 创建物理世界，宽高为0表示不限制边界
func NewWorld(width, height float64) *World {
	return &World{
		Width:    width,
		Height:   height,
		bodies:   make(map[Handle]*body),
		byEntity: make(map[string]Handle),
		handlers: make(map[pairKey]ContactHandler),
	}
}

// AddBody 添加物理体
func (w *World) AddBody(spec BodySpec) Handle {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if old, ok := w.byEntity[spec.EntityID]; ok {
		delete(w.bodies, old)
	}

	w.nextID++
	h := w.nextID
	mass := spec.Mass
	if mass <= 0 {
		mass = 1
	}
	w.bodies[h] = &body{Body: Body{
		Handle:          h,
		EntityID:        spec.EntityID,
		Category:        spec.Category,
		Mass:            mass,
		Friction:        spec.Friction,
		Elasticity:      spec.Elasticity,
		Radius:          spec.Radius,
		Position:        spec.Position,
		Velocity:        spec.Velocity,
		Angle:           spec.Angle,
		AngularVelocity: spec.AngularVelocity,
	}}
	w.byEntity[spec.EntityID] = h
	return h
}

// RemoveBody 移除物理体
func (w *World) RemoveBody(entityID string) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	h, ok := w.byEntity[entityID]
	if !ok {
		return false
	}
	delete(w.byEntity, entityID)
	delete(w.bodies, h)
	return true
}

// ApplyForce 施加力
func (w *World) ApplyForce(h Handle, force, point models.Vector2D) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	b, ok := w.bodies[h]
	if !ok {
		return false
	}
	b.force = b.force.Add(force)
	r := point.Sub(b.Position)
	b.torque += r.X*force.Y - r.Y*force.X
	return true
}

// SetVelocity 设置线速度
func (w *World) SetVelocity(h Handle, v models.Vector2D) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	b, ok := w.bodies[h]
	if !ok {
		return false
	}
	b.Velocity = v
	return true
}

// OnContact 注册接触回调
func (w *World) OnContact(a, b models.Category, handler ContactHandler) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.handlers[pairKey{a, b}] = handler
}

// Body 查询物理体
func (w *World) Body(h Handle) (Body, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	b, ok := w.bodies[h]
	if !ok {
		return Body{}, false
	}
	return b.Body, true
}

// BodyOf 按实体查询物理体
func (w *World) BodyOf(entityID string) (Body, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	h, ok := w.byEntity[entityID]
	if !ok {
		return Body{}, false
	}
	return w.bodies[h].Body, true
}

// Bodies 按句柄顺序返回所有物理体
func (w *World) Bodies() []Body {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	out := make([]Body, 0, len(w.bodies))
	for _, b := range w.sorted() {
		out = append(out, b.Body)
	}
	return out
}

type pendingContact struct {
	handler ContactHandler
	a, b    string
	contact Contact
}

// Step 推进模拟
//
// 先积分，再检测接触并解算实体之间的反弹，最后在释放锁后依次触发回调，
// 回调内可以安全地调用 RemoveBody 等方法。
func (w *World) Step(dt float64) {
	w.mutex.Lock()

	ordered := w.sorted()
	for _, b := range ordered {
		w.integrate(b, dt)
	}

	pending := make([]pendingContact, 0)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]

			delta := b.Position.Sub(a.Position)
			dist := delta.Len()
			if dist >= a.Radius+b.Radius {
				continue
			}

			normal := models.Vector2D{X: 1}
			if dist > 0 {
				normal = delta.Scale(1 / dist)
			}
			contact := Contact{
				Point:  a.Position.Add(normal.Scale(a.Radius)),
				Normal: normal,
				Depth:  a.Radius + b.Radius - dist,
			}

			if h, ok := w.handlers[pairKey{a.Category, b.Category}]; ok {
				pending = append(pending, pendingContact{h, a.EntityID, b.EntityID, contact})
			} else if h, ok := w.handlers[pairKey{b.Category, a.Category}]; ok {
				flipped := contact
				flipped.Normal = normal.Scale(-1)
				pending = append(pending, pendingContact{h, b.EntityID, a.EntityID, flipped})
			} else if solid(a) && solid(b) {
				resolve(a, b, contact)
			}
		}
	}

	w.mutex.Unlock()

	for _, p := range pending {
		p.handler(p.a, p.b, p.contact)
	}
}

func (w *World) sorted() []*body {
	handles := make([]Handle, 0, len(w.bodies))
	for h := range w.bodies {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	out := make([]*body, 0, len(handles))
	for _, h := range handles {
		out = append(out, w.bodies[h])
	}
	return out
}

func (w *World) integrate(b *body, dt float64) {
	accel := b.force.Scale(1 / b.Mass)
	b.Velocity = b.Velocity.Add(accel.Scale(dt))
	if b.Friction > 0 {
		damping := math.Max(0, 1-b.Friction*dt)
		b.Velocity = b.Velocity.Scale(damping)
	}
	if b.Radius > 0 {
		inertia := 0.5 * b.Mass * b.Radius * b.Radius
		b.AngularVelocity += b.torque / inertia * dt
	}

	b.Position = b.Position.Add(b.Velocity.Scale(dt))
	b.Angle += b.AngularVelocity * dt
	b.force = models.Vector2D{}
	b.torque = 0

	// 投射物出界由上层按寿命和边界回收
	if b.Category == models.CategoryProjectile {
		return
	}
	w.bounce(b)
}

// bounce 场地边界反弹
func (w *World) bounce(b *body) {
	if w.Width > 0 {
		if b.Position.X < b.Radius {
			b.Position.X = b.Radius
			b.Velocity.X = math.Abs(b.Velocity.X) * b.Elasticity
		} else if b.Position.X > w.Width-b.Radius {
			b.Position.X = w.Width - b.Radius
			b.Velocity.X = -math.Abs(b.Velocity.X) * b.Elasticity
		}
	}
	if w.Height > 0 {
		if b.Position.Y < b.Radius {
			b.Position.Y = b.Radius
			b.Velocity.Y = math.Abs(b.Velocity.Y) * b.Elasticity
		} else if b.Position.Y > w.Height-b.Radius {
			b.Position.Y = w.Height - b.Radius
			b.Velocity.Y = -math.Abs(b.Velocity.Y) * b.Elasticity
		}
	}
}

func solid(b *body) bool {
	return b.Category != models.CategoryProjectile
}

// resolve 两个实体之间的冲量解算
func resolve(a, b *body, c Contact) {
	rel := b.Velocity.Sub(a.Velocity)
	along := rel.X*c.Normal.X + rel.Y*c.Normal.Y
	invA, invB := 1/a.Mass, 1/b.Mass

	// 分离位置，按质量分配
	push := c.Depth / (invA + invB)
	a.Position = a.Position.Sub(c.Normal.Scale(push * invA))
	b.Position = b.Position.Add(c.Normal.Scale(push * invB))

	if along > 0 {
		return
	}
	e := math.Min(a.Elasticity, b.Elasticity)
	j := -(1 + e) * along / (invA + invB)
	impulse := c.Normal.Scale(j)
	a.Velocity = a.Velocity.Sub(impulse.Scale(invA))
	b.Velocity = b.Velocity.Add(impulse.Scale(invB))
}
