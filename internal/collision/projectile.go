// projectile.go

package collision

import (
	"sort"
	"sync"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/physics"
)

// Projectile 投射物，不参与重生
type Projectile struct {
	ID       string
	Creator  string             // 发射者实体ID，用于排除自伤
	By       models.Attribution // 伤害归属
	Damage   int
	Age      float64
	LifeTime float64
}

// Projectiles 投射物表，移除是幂等的
type Projectiles struct {
	engine physics.Engine

	mutex sync.RWMutex
	items map[string]*Projectile
}

// NewProjectiles 创建投射物表
func NewProjectiles(engine physics.Engine) *Projectiles {
	return &Projectiles{
		engine: engine,
		items:  make(map[string]*Projectile),
	}
}

// Fire 加入投射物并挂载物理体
func (p *Projectiles) Fire(proj Projectile, position, velocity models.Vector2D, radius float64) physics.Handle {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	stored := proj
	p.items[proj.ID] = &stored
	return p.engine.AddBody(physics.BodySpec{
		EntityID: proj.ID,
		Category: models.CategoryProjectile,
		Mass:     0.1,
		Radius:   radius,
		Position: position,
		Velocity: velocity,
	})
}

// Get 查询投射物
func (p *Projectiles) Get(id string) (Projectile, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	proj, ok := p.items[id]
	if !ok {
		return Projectile{}, false
	}
	return *proj, true
}

// Remove 移除投射物，已移除时返回false
func (p *Projectiles) Remove(id string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if _, ok := p.items[id]; !ok {
		return false
	}
	delete(p.items, id)
	p.engine.RemoveBody(id)
	return true
}

// Len 投射物数量
func (p *Projectiles) Len() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.items)
}

// Expire 推进寿命，移除超时或离开边界的投射物，返回被移除的ID
//
// width 或 height 为0时不检查对应方向的边界。
func (p *Projectiles) Expire(dt, width, height float64) []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	expired := make([]string, 0)
	for id, proj := range p.items {
		proj.Age += dt
		if proj.LifeTime > 0 && proj.Age >= proj.LifeTime {
			expired = append(expired, id)
			continue
		}
		if b, ok := p.engine.BodyOf(id); ok && outside(b.Position, width, height) {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)

	for _, id := range expired {
		delete(p.items, id)
		p.engine.RemoveBody(id)
	}
	return expired
}

func outside(pos models.Vector2D, width, height float64) bool {
	if width > 0 && (pos.X < 0 || pos.X > width) {
		return true
	}
	if height > 0 && (pos.Y < 0 || pos.Y > height) {
		return true
	}
	return false
}
