// clock.go

package match

// DefaultTimeLimit 默认对局时长(秒)
const DefaultTimeLimit = 120.0

// Clock 对局计时，时限为0表示不限时
type Clock struct {
	limit   float64
	elapsed float64
	over    bool
}

// NewClock 创建对局计时
func NewClock(limit float64) *Clock {
	if limit < 0 {
		limit = DefaultTimeLimit
	}
	return &Clock{limit: limit}
}

// Advance 推进时间，返回本次调用是否刚好到时
func (c *Clock) Advance(dt float64) bool {
	if c.over {
		return false
	}
	c.elapsed += dt
	if c.limit > 0 && c.elapsed >= c.limit {
		c.elapsed = c.limit
		c.over = true
		return true
	}
	return false
}

// End 提前结束，返回是否由本次调用结束
func (c *Clock) End() bool {
	if c.over {
		return false
	}
	c.over = true
	return true
}

// Over 对局是否已结束
func (c *Clock) Over() bool { return c.over }

// Elapsed 已进行时间
func (c *Clock) Elapsed() float64 { return c.elapsed }

// Limit 时限
func (c *Clock) Limit() float64 { return c.limit }

// Remaining 剩余时间，不限时返回0
func (c *Clock) Remaining() float64 {
	if c.limit <= 0 {
		return 0
	}
	return c.limit - c.elapsed
}
