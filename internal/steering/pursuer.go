// pursuer.go

package steering

import (
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// Pursuer 每个空间轴各一个控制器，输出施加到实体上的力
type Pursuer struct {
	x, y *PID
	// Standoff 与目标保持的距离，距离不大于它时不再施力
	Standoff float64
}

// NewPursuer 创建追踪控制器
func NewPursuer(gains Gains, standoff float64) *Pursuer {
	return &Pursuer{
		x:        NewPID(gains),
		y:        NewPID(gains),
		Standoff: standoff,
	}
}

// Steer 根据到目标的偏移(目标位置-自身位置)计算力
//
// 测量值为自身相对目标的位置，设定点为0，误差即偏移本身。
// dt为0时不更新控制器，返回零向量。
func (p *Pursuer) Steer(offset models.Vector2D, dt float64) models.Vector2D {
	if dt == 0 {
		return models.Vector2D{}
	}
	if offset.Len() <= p.Standoff {
		return models.Vector2D{}
	}

	return models.Vector2D{
		X: p.x.Update(0, -offset.X, dt),
		Y: p.y.Update(0, -offset.Y, dt),
	}
}

// Reset 目标丢失时清空两轴状态
func (p *Pursuer) Reset() {
	p.x.Reset()
	p.y.Reset()
}
