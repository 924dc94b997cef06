// nearest.go

package physics

import (
	"math"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// Candidate 最近邻查询的候选
type Candidate struct {
	ID       string
	Position models.Vector2D
}

// Target 最近邻查询结果
type Target struct {
	ID       string
	Distance float64
	Offset   models.Vector2D // 目标位置 - 查询位置
	Found    bool
}

// NoTarget 候选集为空时的结果
var NoTarget = Target{Distance: math.Inf(1)}

// Nearest 在候选集中查找距离 from 最近的一个，距离相同时取先出现的
func Nearest(from models.Vector2D, candidates []Candidate) Target {
	best := NoTarget
	for _, c := range candidates {
		offset := c.Position.Sub(from)
		d := offset.Len()
		if d < best.Distance {
			best = Target{ID: c.ID, Distance: d, Offset: offset, Found: true}
		}
	}
	return best
}
