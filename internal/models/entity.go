// entity.go

package models

import (
	"math"
)

// Vector2D 二维向量
type Vector2D struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Add 向量相加
func (v Vector2D) Add(o Vector2D) Vector2D {
	return Vector2D{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub 向量相减
func (v Vector2D) Sub(o Vector2D) Vector2D {
	return Vector2D{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale 向量缩放
func (v Vector2D) Scale(k float64) Vector2D {
	return Vector2D{X: v.X * k, Y: v.Y * k}
}

// Len 向量长度
func (v Vector2D) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// LenSq 向量长度平方
func (v Vector2D) LenSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Category 碰撞类别
type Category string

const (
	// CategoryShip 玩家飞船
	CategoryShip Category = "ship"
	// CategoryProjectile 投射物
	CategoryProjectile Category = "projectile"
	// CategoryJunk 太空垃圾(空间站残骸)
	CategoryJunk Category = "junk"
	// CategoryHostile 敌对单位(Bug/UFO)
	CategoryHostile Category = "hostile"
)

// ActorID 参与者标识，计分以此为键而不是实体引用
type ActorID string

// NoActor 无归属
const NoActor ActorID = ""

// Attribution 伤害归属
type Attribution struct {
	Actor    ActorID  `json:"actor,omitempty"`
	Category Category `json:"category,omitempty"`
}

// IsPlayer 归属是否为玩家
func (a Attribution) IsPlayer() bool {
	return a.Actor != NoActor && a.Category == CategoryShip
}

// EffectSize 特效尺寸
type EffectSize string

const (
	// EffectSmall 小型爆炸(命中)
	EffectSmall EffectSize = "small"
	// EffectNormal 普通爆炸(飞船/残骸摧毁)
	EffectNormal EffectSize = "normal"
	// EffectBig 大型爆炸(敌对单位摧毁)
	EffectBig EffectSize = "big"
)

// Template 可生成实体模板
type Template struct {
	ID         string   `json:"id" mapstructure:"id"`
	Category   Category `json:"category" mapstructure:"category"`
	Sprite     string   `json:"sprite,omitempty" mapstructure:"sprite"`
	MaxHealth  int      `json:"max_health" mapstructure:"max_health"`
	Mass       float64  `json:"mass" mapstructure:"mass"`
	Friction   float64  `json:"friction" mapstructure:"friction"`
	Elasticity float64  `json:"elasticity" mapstructure:"elasticity"`
	Radius     float64  `json:"radius" mapstructure:"radius"`
	Points     int      `json:"points,omitempty" mapstructure:"points"` // 被玩家摧毁时的奖励分
	Respawns   bool     `json:"respawns" mapstructure:"respawns"`
}

// Effect 视觉特效事件
type Effect struct {
	Position Vector2D   `json:"position" msgpack:"position"`
	Size     EffectSize `json:"size" msgpack:"size"`
}
