// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 服务器配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Arena    ArenaConfig    `mapstructure:"arena"`
}

// ServerConfig 服务器基本配置
type ServerConfig struct {
	GamePort     int    `mapstructure:"game_port"`
	GatewayPort  int    `mapstructure:"gateway_port"`
	Debug        bool   `mapstructure:"debug"`
	LogLevel     string `mapstructure:"log_level"`
	MaxRoomCount int    `mapstructure:"max_room_count"`
	TickRate     int    `mapstructure:"tick_rate"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	TokenTTL     int    `mapstructure:"token_ttl"` // 秒
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ArenaConfig 竞技场配置
type ArenaConfig struct {
	Width              float64 `mapstructure:"width"`
	Height             float64 `mapstructure:"height"`
	Seed               string  `mapstructure:"seed"` // "time" 或整数
	RespawnDelay       float64 `mapstructure:"respawn_delay"`
	KillBonus          int     `mapstructure:"kill_bonus"`
	MatchTimeLimit     float64 `mapstructure:"match_time_limit"`
	ScoreLimit         int     `mapstructure:"score_limit"` // 0 表示不限制
	FireCooldown       float64 `mapstructure:"fire_cooldown"`
	ProjectileDamage   int     `mapstructure:"projectile_damage"`
	ProjectileSpeed    float64 `mapstructure:"projectile_speed"`
	ProjectileLifetime float64 `mapstructure:"projectile_lifetime"`
	ProjectileRadius   float64 `mapstructure:"projectile_radius"`

	Ship     ShipConfig     `mapstructure:"ship"`
	Hostile  HostileConfig  `mapstructure:"hostile"`
	Groups   GroupsConfig   `mapstructure:"groups"`
	Steering SteeringConfig `mapstructure:"steering"`
}

// ShipConfig 飞船参数
type ShipConfig struct {
	Hitpoints  int     `mapstructure:"hitpoints"`
	Mass       float64 `mapstructure:"mass"`
	Friction   float64 `mapstructure:"friction"`
	Elasticity float64 `mapstructure:"elasticity"`
	Thrust     float64 `mapstructure:"thrust"`
	MaxSpeed   float64 `mapstructure:"max_speed"`
}

// HostileConfig 敌对单位参数
type HostileConfig struct {
	FireInterval  float64 `mapstructure:"fire_interval"`
	ShootDistance float64 `mapstructure:"shoot_distance"`
	Standoff      float64 `mapstructure:"standoff"`
}

// GroupConfig 生成组区间
type GroupConfig struct {
	CountMin    int     `mapstructure:"count_min"`
	CountMax    int     `mapstructure:"count_max"`
	VelocityMin float64 `mapstructure:"velocity_min"`
	VelocityMax float64 `mapstructure:"velocity_max"`
	AngularMin  float64 `mapstructure:"angular_min"`
	AngularMax  float64 `mapstructure:"angular_max"`
}

// GroupsConfig 各生成组
type GroupsConfig struct {
	Small    GroupConfig `mapstructure:"small"`
	Big      GroupConfig `mapstructure:"big"`
	Hostiles GroupConfig `mapstructure:"hostiles"`
}

// SteeringConfig 追踪控制器参数(按帧)
type SteeringConfig struct {
	Kp     float64 `mapstructure:"kp"`
	Ki     float64 `mapstructure:"ki"`
	Kd     float64 `mapstructure:"kd"`
	LimMin float64 `mapstructure:"lim_min"`
	LimMax float64 `mapstructure:"lim_max"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig Config
)

// setDefaults 注册默认值，空配置文件也能启动
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.game_port", 8081)
	v.SetDefault("server.gateway_port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.max_room_count", 100)
	v.SetDefault("server.tick_rate", 60)
	v.SetDefault("server.jwt_secret", "pixelstorm-arena-dev-secret")
	v.SetDefault("server.token_ttl", 86400)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "pixelstorm_arena")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("arena.width", 2400.0)
	v.SetDefault("arena.height", 1600.0)
	v.SetDefault("arena.seed", "time")
	v.SetDefault("arena.respawn_delay", 5.0)
	v.SetDefault("arena.kill_bonus", 25)
	v.SetDefault("arena.match_time_limit", 120.0)
	v.SetDefault("arena.score_limit", 0)
	v.SetDefault("arena.fire_cooldown", 0.25)
	v.SetDefault("arena.projectile_damage", 1)
	v.SetDefault("arena.projectile_speed", 900.0)
	v.SetDefault("arena.projectile_lifetime", 2.0)
	v.SetDefault("arena.projectile_radius", 4.0)

	v.SetDefault("arena.ship.hitpoints", 5)
	v.SetDefault("arena.ship.mass", 1.0)
	v.SetDefault("arena.ship.friction", 0.0)
	v.SetDefault("arena.ship.elasticity", 0.1)
	v.SetDefault("arena.ship.thrust", 450.0)
	v.SetDefault("arena.ship.max_speed", 600.0)

	v.SetDefault("arena.hostile.fire_interval", 1.5)
	v.SetDefault("arena.hostile.shoot_distance", 625.0)
	v.SetDefault("arena.hostile.standoff", 10.0)

	setGroupDefaults(v, "small", 5, 20, 20, 2)
	setGroupDefaults(v, "big", 5, 15, 10, 1)
	setGroupDefaults(v, "hostiles", 1, 1, 10, 1)

	v.SetDefault("arena.steering.kp", 0.5)
	v.SetDefault("arena.steering.ki", 0.00002)
	v.SetDefault("arena.steering.kd", 75.0)
	v.SetDefault("arena.steering.lim_min", -200.0)
	v.SetDefault("arena.steering.lim_max", 200.0)
}

// setGroupDefaults 生成组默认值，速度和角速度区间关于0对称
func setGroupDefaults(v *viper.Viper, name string, countMin, countMax int, velocity, angular float64) {
	prefix := "arena.groups." + name + "."
	v.SetDefault(prefix+"count_min", countMin)
	v.SetDefault(prefix+"count_max", countMax)
	v.SetDefault(prefix+"velocity_min", -velocity)
	v.SetDefault(prefix+"velocity_max", velocity)
	v.SetDefault(prefix+"angular_min", -angular)
	v.SetDefault(prefix+"angular_max", angular)
}

// Load 加载配置，configPath 为空时只使用默认值和环境变量
//
// 当前目录下的 .env 会先被加载到环境变量中。
func Load(configPath string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("无法读取.env文件: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法解析配置文件: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("配置无效: %w", err)
	}

	return cfg, nil
}

// LoadConfig 从文件加载配置到 GlobalConfig
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	GlobalConfig = cfg
	return nil
}

// Validate 检查配置
func (c *Config) Validate() error {
	if c.Server.TickRate <= 0 {
		return fmt.Errorf("tick_rate 必须为正: %d", c.Server.TickRate)
	}
	if c.Server.JWTSecret == "" {
		return errors.New("jwt_secret 不能为空")
	}

	a := c.Arena
	if a.Width <= 0 || a.Height <= 0 {
		return fmt.Errorf("场地尺寸必须为正: %vx%v", a.Width, a.Height)
	}
	if a.RespawnDelay < 0 || a.FireCooldown < 0 || a.MatchTimeLimit < 0 {
		return errors.New("时间参数不能为负")
	}
	if a.ProjectileDamage <= 0 || a.Ship.Hitpoints <= 0 {
		return errors.New("伤害和生命值必须为正")
	}
	if a.Steering.LimMin > a.Steering.LimMax {
		return fmt.Errorf("steering 输出区间无效: [%v, %v]", a.Steering.LimMin, a.Steering.LimMax)
	}

	groups := map[string]GroupConfig{
		"small":    a.Groups.Small,
		"big":      a.Groups.Big,
		"hostiles": a.Groups.Hostiles,
	}
	for name, g := range groups {
		if g.CountMin < 0 || g.CountMin > g.CountMax {
			return fmt.Errorf("生成组 %s 数量区间无效: [%d, %d]", name, g.CountMin, g.CountMax)
		}
		if g.VelocityMin > g.VelocityMax || g.AngularMin > g.AngularMax {
			return fmt.Errorf("生成组 %s 速度区间无效", name)
		}
	}

	return nil
}

// GetDSN 获取PostgreSQL连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetRedisAddr 获取Redis连接地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
