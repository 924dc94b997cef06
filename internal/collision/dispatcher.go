// dispatcher.go

package collision

import (
	"log"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/physics"
)

// Damager 伤害接收方
type Damager interface {
	Damage(id string, amount int, by models.Attribution) bool
}

// ShotRecorder 命中统计接收方
type ShotRecorder interface {
	AddShotHit(actor models.ActorID) error
}

// Targets 可被投射物命中的类别
var Targets = []models.Category{
	models.CategoryShip,
	models.CategoryJunk,
	models.CategoryHostile,
}

// Dispatcher 把投射物接触事件解析为伤害和归属
type Dispatcher struct {
	projectiles *Projectiles
	damager     Damager
	shots       ShotRecorder
	effects     func(models.Effect)
}

// NewDispatcher 创建分发器，effects 可以为nil
func NewDispatcher(projectiles *Projectiles, damager Damager, shots ShotRecorder, effects func(models.Effect)) *Dispatcher {
	return &Dispatcher{
		projectiles: projectiles,
		damager:     damager,
		shots:       shots,
		effects:     effects,
	}
}

// Register 为每个 投射物×目标 类别对注册回调
func (d *Dispatcher) Register(engine physics.Engine) {
	for _, category := range Targets {
		engine.OnContact(models.CategoryProjectile, category, func(a, b string, c physics.Contact) {
			d.HandleHit(a, b, c)
		})
	}
}

// HandleHit 处理一次投射物命中，返回是否产生了命中
//
// 自伤直接忽略；投射物只会被移除一次，重复的接触事件在移除处被吸收。
func (d *Dispatcher) HandleHit(projectileID, struckID string, c physics.Contact) bool {
	proj, ok := d.projectiles.Get(projectileID)
	if !ok {
		return false
	}
	if proj.Creator == struckID {
		return false
	}

	if !d.projectiles.Remove(projectileID) {
		return false
	}
	if d.effects != nil {
		d.effects(models.Effect{Position: c.Point, Size: models.EffectSmall})
	}
	d.damager.Damage(struckID, proj.Damage, proj.By)

	if proj.By.IsPlayer() && d.shots != nil {
		if err := d.shots.AddShotHit(proj.By.Actor); err != nil {
			log.Printf("记录命中失败 %s: %v", proj.By.Actor, err)
		}
	}
	return true
}
