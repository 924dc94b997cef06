package protocol

import (
	"github.com/jacl-coder/PixelStorm-Arena/internal/lifecycle"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/physics"
)

// ConvertEntity 将实体和它的物理体转换为协议状态
//
// 死亡实体没有物理体，位置取重生点。
func ConvertEntity(e lifecycle.Entity, body physics.Body, hasBody bool) EntityState {
	tpl := e.Template()
	state := EntityState{
		ID:        e.ID(),
		Category:  tpl.Category,
		Template:  tpl.ID,
		Sprite:    tpl.Sprite,
		Owner:     e.Owner(),
		State:     e.State().String(),
		Visible:   e.Visible(),
		Health:    e.Health(),
		MaxHealth: e.MaxHealth(),
		Position:  e.SpawnPoint(),
		Radius:    tpl.Radius,
	}
	if hasBody {
		state.Position = body.Position
		state.Velocity = body.Velocity
		state.Angle = body.Angle
	}
	return state
}

// ConvertProjectile 将投射物物理体转换为协议状态
func ConvertProjectile(body physics.Body, by models.ActorID) ProjectileState {
	return ProjectileState{
		ID:       body.EntityID,
		Position: body.Position,
		Velocity: body.Velocity,
		By:       by,
	}
}
