// catalog.go

package spawn

import (
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// 模板参数
const (
	SmallStationHealth = 15
	SmallStationMass   = 2.0
	BigStationHealth   = 60
	BigStationMass     = 8.0
	StationElasticity  = 0.9
	SmallStationRadius = 24.0
	BigStationRadius   = 48.0
	HostileHealth      = 15
	HostileMass        = 0.5
	HostileElasticity  = 0.9
	HostileRadius      = 28.0
	HostilePoints      = 10
	JunkPoints         = 0
	GroupSmall         = "small"
	GroupBig           = "big"
	GroupHostiles      = "hostiles"
	spriteStation      = "station/"
	spriteHostile      = "hostile/"
)

func station(id string, health int, mass, radius float64) models.Template {
	return models.Template{
		ID:         id,
		Category:   models.CategoryJunk,
		Sprite:     spriteStation + id + ".png",
		MaxHealth:  health,
		Mass:       mass,
		Elasticity: StationElasticity,
		Radius:     radius,
		Points:     JunkPoints,
	}
}

func hostile(color string) models.Template {
	return models.Template{
		ID:         "ufo_" + color,
		Category:   models.CategoryHostile,
		Sprite:     spriteHostile + color + ".png",
		MaxHealth:  HostileHealth,
		Mass:       HostileMass,
		Elasticity: HostileElasticity,
		Radius:     HostileRadius,
		Points:     HostilePoints,
	}
}

// SmallStations 小型空间站
func SmallStations() []models.Template {
	return []models.Template{
		station("sputnik_1", SmallStationHealth, SmallStationMass, SmallStationRadius),
		station("sputnik_2", SmallStationHealth, SmallStationMass, SmallStationRadius),
		station("small_1", SmallStationHealth, SmallStationMass, SmallStationRadius),
		station("small_2", SmallStationHealth, SmallStationMass, SmallStationRadius),
		station("small_3", SmallStationHealth, SmallStationMass, SmallStationRadius),
		station("small_4", SmallStationHealth, SmallStationMass, SmallStationRadius),
	}
}

// BigStations 大型空间站
func BigStations() []models.Template {
	return []models.Template{
		station("big_1", BigStationHealth, BigStationMass, BigStationRadius),
		station("big_2", SmallStationHealth, SmallStationMass, BigStationRadius),
		station("big_3", SmallStationHealth, SmallStationMass, BigStationRadius),
	}
}

// Hostiles 敌对单位
func Hostiles() []models.Template {
	return []models.Template{
		hostile("blue"),
		hostile("green"),
		hostile("red"),
		hostile("yellow"),
	}
}

// DefaultGroups 默认生成组
func DefaultGroups() []Group {
	return []Group{
		{
			Name:      GroupSmall,
			Templates: SmallStations(),
			Count:     Range{Min: 5, Max: 20},
			Velocity:  FloatRange{Min: -20, Max: 20},
			Angular:   FloatRange{Min: -2, Max: 2},
		},
		{
			Name:      GroupBig,
			Templates: BigStations(),
			Count:     Range{Min: 5, Max: 15},
			Velocity:  FloatRange{Min: -10, Max: 10},
			Angular:   FloatRange{Min: -1, Max: 1},
		},
		{
			Name:      GroupHostiles,
			Templates: Hostiles(),
			Count:     Range{Min: 1, Max: 1},
			Velocity:  FloatRange{Min: -10, Max: 10},
			Angular:   FloatRange{Min: -1, Max: 1},
		},
	}
}
