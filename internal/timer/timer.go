// timer.go

package timer

import (
	"sort"
)

// Timer 命名倒计时
type Timer struct {
	Name      string
	Duration  float64
	Remaining float64
	Paused    bool
	Elapsed   bool
	Restart   bool
}

// Manager 计时器管理器
//
// 每个计时器在任意时刻只处于以下之一: 运行中、暂停、已到期待消费。
// 到期的计时器停留在到期集合中，直到调用 Consume。
type Manager struct {
	timers  map[string]*Timer
	elapsed map[string]struct{}
}

// NewManager 创建计时器管理器
func NewManager() *Manager {
	return &Manager{
		timers:  make(map[string]*Timer),
		elapsed: make(map[string]struct{}),
	}
}

// Add 添加计时器，名称已存在或时长为负时返回false
func (m *Manager) Add(name string, duration float64, paused, restart bool) bool {
	if _, exists := m.timers[name]; exists {
		return false
	}
	if duration < 0 {
		return false
	}

	m.timers[name] = &Timer{
		Name:      name,
		Duration:  duration,
		Remaining: duration,
		Paused:    paused,
		Restart:   restart,
	}
	return true
}

// Tick 推进所有未暂停且未到期的计时器
func (m *Manager) Tick(dt float64) {
	for name, t := range m.timers {
		if t.Paused || t.Elapsed {
			continue
		}

		t.Remaining -= dt
		if t.Remaining <= 0 {
			t.Remaining = 0
			t.Elapsed = true
			m.elapsed[name] = struct{}{}
		}
	}
}

// PollElapsed 返回已到期但尚未消费的计时器名称(按名称排序)
func (m *Manager) PollElapsed() []string {
	names := make([]string, 0, len(m.elapsed))
	for name := range m.elapsed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsElapsed 计时器是否已到期待消费
func (m *Manager) IsElapsed(name string) bool {
	_, ok := m.elapsed[name]
	return ok
}

// Consume 消费到期的计时器
//
// 设置了 Restart 的计时器重置为完整时长继续运行，否则直接删除。
// 对未到期或不存在的计时器调用返回false。
func (m *Manager) Consume(name string) bool {
	if _, ok := m.elapsed[name]; !ok {
		return false
	}
	delete(m.elapsed, name)

	t, exists := m.timers[name]
	if !exists {
		return false
	}

	if t.Restart {
		t.Remaining = t.Duration
		t.Elapsed = false
		return true
	}

	delete(m.timers, name)
	return true
}

// Pause 暂停计时器，已到期的计时器不能暂停
func (m *Manager) Pause(name string) bool {
	t, exists := m.timers[name]
	if !exists || t.Elapsed {
		return false
	}
	t.Paused = true
	return true
}

// Unpause 恢复计时器
func (m *Manager) Unpause(name string) bool {
	t, exists := m.timers[name]
	if !exists || t.Elapsed {
		return false
	}
	t.Paused = false
	return true
}

// Remove 无条件删除计时器
func (m *Manager) Remove(name string) bool {
	if _, exists := m.timers[name]; !exists {
		return false
	}
	delete(m.timers, name)
	delete(m.elapsed, name)
	return true
}

// Has 计时器是否存在
func (m *Manager) Has(name string) bool {
	_, exists := m.timers[name]
	return exists
}

// Remaining 获取剩余时间，不存在时第二个返回值为false
func (m *Manager) Remaining(name string) (float64, bool) {
	t, exists := m.timers[name]
	if !exists {
		return 0, false
	}
	return t.Remaining, true
}

// Get 获取计时器副本
func (m *Manager) Get(name string) (Timer, bool) {
	t, exists := m.timers[name]
	if !exists {
		return Timer{}, false
	}
	return *t, true
}

// Len 计时器数量
func (m *Manager) Len() int {
	return len(m.timers)
}
