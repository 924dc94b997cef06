// pid.go

package steering

// Gains 控制器参数
type Gains struct {
	Kp     float64 `mapstructure:"kp"`
	Ki     float64 `mapstructure:"ki"`
	Kd     float64 `mapstructure:"kd"`
	LimMin float64 `mapstructure:"lim_min"`
	LimMax float64 `mapstructure:"lim_max"`
}

// DefaultGains 默认追踪参数(按帧计时: dt=1 对应一帧)
func DefaultGains() Gains {
	return Gains{
		Kp:     0.5,
		Ki:     0.00002,
		Kd:     75.0,
		LimMin: -200,
		LimMax: 200,
	}
}

// PID 单轴比例-积分-微分控制器
//
// output = kp*e + ki*∫e·dt + kd*Δe/dt，输出限制在 [LimMin, LimMax]。
// 调用方必须保证 dt 不为0。
type PID struct {
	gains      Gains
	integrator float64
	prevError  float64
}

// NewPID 创建控制器
func NewPID(gains Gains) *PID {
	return &PID{gains: gains}
}

// Update 计算一次输出
func (p *PID) Update(setpoint, measured, dt float64) float64 {
	err := setpoint - measured

	proportional := p.gains.Kp * err
	p.integrator += p.gains.Ki * err * dt
	derivative := p.gains.Kd * (err - p.prevError) / dt

	p.prevError = err

	return clamp(proportional+p.integrator+derivative, p.gains.LimMin, p.gains.LimMax)
}

// Reset 清空积分项和上一次误差
func (p *PID) Reset() {
	p.integrator = 0
	p.prevError = 0
}

// Integrator 当前积分项
func (p *PID) Integrator() float64 {
	return p.integrator
}

func clamp(v, lo, hi float64) float64 {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}
