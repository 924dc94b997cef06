// queue.go

package match

import (
	"log"
	"sync"
	"time"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// Request 匹配请求
type Request struct {
	Actor        models.ActorID
	ConnectionID string
	Mode         models.GameMode
	Timestamp    time.Time
}

// Queue 匹配队列，按游戏模式分类，先进先出
type Queue struct {
	queues map[models.GameMode][]Request
	mutex  sync.RWMutex
}

// NewQueue 创建匹配队列
func NewQueue() *Queue {
	return &Queue{
		queues: make(map[models.GameMode][]Request),
	}
}

// Add 添加请求，同一连接在同一模式下只排队一次
func (q *Queue) Add(req Request) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for _, r := range q.queues[req.Mode] {
		if r.ConnectionID == req.ConnectionID {
			return false
		}
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	q.queues[req.Mode] = append(q.queues[req.Mode], req)
	log.Printf("玩家 %s 加入 %s 模式的匹配队列", req.Actor, req.Mode)
	return true
}

// Remove 从所有模式的队列中移除该连接
func (q *Queue) Remove(connectionID string) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	removed := false
	for mode, queue := range q.queues {
		for i, r := range queue {
			if r.ConnectionID == connectionID {
				q.queues[mode] = append(queue[:i], queue[i+1:]...)
				log.Printf("玩家 %s 离开 %s 模式的匹配队列", r.Actor, mode)
				removed = true
				break
			}
		}
	}
	return removed
}

// Len 队列长度
func (q *Queue) Len(mode models.GameMode) int {
	q.mutex.RLock()
	defer q.mutex.RUnlock()
	return len(q.queues[mode])
}

// Lengths 所有队列长度
func (q *Queue) Lengths() map[models.GameMode]int {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	result := make(map[models.GameMode]int)
	for mode, queue := range q.queues {
		result[mode] = len(queue)
	}
	return result
}

// Match 取出所有凑满人数的组
func (q *Queue) Match() [][]Request {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	groups := make([][]Request, 0)
	for mode, queue := range q.queues {
		needed := mode.MaxPlayers()
		for len(queue) >= needed {
			group := make([]Request, needed)
			copy(group, queue[:needed])
			groups = append(groups, group)
			queue = queue[needed:]
		}
		q.queues[mode] = queue
	}
	return groups
}
