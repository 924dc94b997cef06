// ship.go

package models

// ShipData 飞船属性(玩家资料的一部分，可持久化为键值快照)
type ShipData struct {
	Sprite        string  `json:"sprite" mapstructure:"sprite"`
	Hitpoints     int     `json:"hitpoints" mapstructure:"hitpoints"`
	Mass          float64 `json:"mass" mapstructure:"mass"`
	Friction      float64 `json:"friction" mapstructure:"friction"`
	Elasticity    float64 `json:"elasticity" mapstructure:"elasticity"`
	Radius        float64 `json:"radius" mapstructure:"radius"`
	MovementSpeed float64 `json:"movement_speed" mapstructure:"movement_speed"` // 推力大小
	RotationSpeed float64 `json:"rotation_speed" mapstructure:"rotation_speed"`
	MaxSpeed      float64 `json:"max_speed" mapstructure:"max_speed"`
}

// 默认飞船属性
const (
	DefaultShipHitpoints     = 5
	DefaultShipMass          = 1.0
	DefaultShipFriction      = 0.0
	DefaultShipElasticity    = 0.1
	DefaultShipRadius        = 20.0
	DefaultShipMovementSpeed = 450.0
	DefaultShipRotationSpeed = 0.05
	DefaultShipMaxSpeed      = 600.0
)

// DefaultShipData 默认飞船
func DefaultShipData() ShipData {
	return ShipData{
		Sprite:        "playerShip1_orange",
		Hitpoints:     DefaultShipHitpoints,
		Mass:          DefaultShipMass,
		Friction:      DefaultShipFriction,
		Elasticity:    DefaultShipElasticity,
		Radius:        DefaultShipRadius,
		MovementSpeed: DefaultShipMovementSpeed,
		RotationSpeed: DefaultShipRotationSpeed,
		MaxSpeed:      DefaultShipMaxSpeed,
	}
}

// Template 转换为可生成实体模板
func (s ShipData) Template(id string) Template {
	return Template{
		ID:         id,
		Category:   CategoryShip,
		Sprite:     s.Sprite,
		MaxHealth:  s.Hitpoints,
		Mass:       s.Mass,
		Friction:   s.Friction,
		Elasticity: s.Elasticity,
		Radius:     s.Radius,
		Respawns:   true,
	}
}
