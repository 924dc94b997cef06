// weapon.go

package models

// Weapon 武器(投射物)参数
type Weapon struct {
	Damage       int     `json:"damage" mapstructure:"damage"`
	CooldownTime float64 `json:"cooldown_time" mapstructure:"cooldown_time"` // 冷却时间(秒)
	Speed        float64 `json:"speed" mapstructure:"speed"`
	LifeTime     float64 `json:"life_time" mapstructure:"life_time"` // 生命周期(秒)
	Radius       float64 `json:"radius" mapstructure:"radius"`
	SpawnOffset  float64 `json:"spawn_offset" mapstructure:"spawn_offset"` // 相对发射者中心的出膛距离
}

// DefaultWeapon 默认武器
func DefaultWeapon() Weapon {
	return Weapon{
		Damage:       1,
		CooldownTime: 0.25,
		Speed:        900,
		LifeTime:     2.0,
		Radius:       4,
		SpawnOffset:  30,
	}
}
