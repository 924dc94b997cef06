// aggregator.go

package score

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// DefaultKillBonus 默认击杀奖励分
const DefaultKillBonus = 25

var (
	// ErrFrozen 对局结束后计分已冻结
	ErrFrozen = errors.New("计分已冻结")
	// ErrNegativeAmount 计数只能增加
	ErrNegativeAmount = errors.New("数值不能为负")
	// ErrShotsExceeded 命中数不能超过开火数
	ErrShotsExceeded = errors.New("命中数超过开火数")
	// ErrUnknownActor 未知参与者
	ErrUnknownActor = errors.New("未知参与者")
)

// Aggregator 按参与者标识维护计分记录
//
// 所有修改都只能通过这里的方法完成，Freeze 之后只读。
type Aggregator struct {
	mutex     sync.RWMutex
	records   map[models.ActorID]*models.ScoreRecord
	order     []models.ActorID
	killBonus int
	frozen    bool
}

// NewAggregator 创建计分器，killBonus 不为正时使用默认值
func NewAggregator(killBonus int) *Aggregator {
	if killBonus <= 0 {
		killBonus = DefaultKillBonus
	}
	return &Aggregator{
		records:   make(map[models.ActorID]*models.ScoreRecord),
		killBonus: killBonus,
	}
}

// KillBonus 击杀奖励分
func (a *Aggregator) KillBonus() int {
	return a.killBonus
}

// Register 为参与者建立空记录，已存在时不做任何事
func (a *Aggregator) Register(actor models.ActorID) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.record(actor)
}

// record 调用方持有写锁
func (a *Aggregator) record(actor models.ActorID) *models.ScoreRecord {
	r, ok := a.records[actor]
	if !ok {
		r = &models.ScoreRecord{Actor: actor}
		a.records[actor] = r
		a.order = append(a.order, actor)
	}
	return r
}

// mutate 在写锁内执行修改
func (a *Aggregator) mutate(actor models.ActorID, fn func(r *models.ScoreRecord) error) error {
	if actor == models.NoActor {
		return ErrUnknownActor
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.frozen {
		return ErrFrozen
	}
	return fn(a.record(actor))
}

// AddKill 记录一次玩家击杀，同时记录受害者的死亡
func (a *Aggregator) AddKill(killer, victim models.ActorID) error {
	if killer == models.NoActor || victim == models.NoActor {
		return ErrUnknownActor
	}
	// 自毁不算击杀
	if killer == victim {
		return a.AddEnvironmentalDeath(victim)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.frozen {
		return ErrFrozen
	}
	k := a.record(killer)
	k.Kills++
	k.Score += a.killBonus
	a.record(victim).Deaths++
	return nil
}

// AddDeath 记录一次死亡
func (a *Aggregator) AddDeath(actor models.ActorID) error {
	return a.mutate(actor, func(r *models.ScoreRecord) error {
		r.Deaths++
		return nil
	})
}

// AddEnvironmentalDeath 记录一次非玩家造成的死亡，不计入任何人的击杀
func (a *Aggregator) AddEnvironmentalDeath(actor models.ActorID) error {
	return a.mutate(actor, func(r *models.ScoreRecord) error {
		r.Deaths++
		r.EnvironmentalDeaths++
		return nil
	})
}

// AddDestroyed 记录玩家摧毁残骸或敌对单位，并加上模板奖励分
func (a *Aggregator) AddDestroyed(actor models.ActorID, category models.Category, points int) error {
	if points < 0 {
		return ErrNegativeAmount
	}
	return a.mutate(actor, func(r *models.ScoreRecord) error {
		switch category {
		case models.CategoryJunk:
			r.JunkDestroyed++
		case models.CategoryHostile:
			r.HostilesDestroyed++
		default:
			return fmt.Errorf("不支持的摧毁类别: %s", category)
		}
		r.Score += points
		return nil
	})
}

// AddScore 增加分数
func (a *Aggregator) AddScore(actor models.ActorID, amount int) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	return a.mutate(actor, func(r *models.ScoreRecord) error {
		r.Score += amount
		return nil
	})
}

// AddShotFired 记录一次开火
func (a *Aggregator) AddShotFired(actor models.ActorID) error {
	return a.mutate(actor, func(r *models.ScoreRecord) error {
		r.ShotsFired++
		return nil
	})
}

// AddShotHit 记录一次命中
func (a *Aggregator) AddShotHit(actor models.ActorID) error {
	return a.mutate(actor, func(r *models.ScoreRecord) error {
		if r.ShotsHit+1 > r.ShotsFired {
			return ErrShotsExceeded
		}
		r.ShotsHit++
		return nil
	})
}

// AddDistance 累加飞行距离并更新最高速度
func (a *Aggregator) AddDistance(actor models.ActorID, distance, speed float64) error {
	if distance < 0 || speed < 0 {
		return ErrNegativeAmount
	}
	return a.mutate(actor, func(r *models.ScoreRecord) error {
		r.Distance += distance
		if speed > r.HighestSpeed {
			r.HighestSpeed = speed
		}
		return nil
	})
}

// Score 当前分数，未知参与者为0
func (a *Aggregator) Score(actor models.ActorID) int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if r, ok := a.records[actor]; ok {
		return r.Score
	}
	return 0
}

// Snapshot 参与者记录的副本
func (a *Aggregator) Snapshot(actor models.ActorID) (models.ScoreRecord, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	r, ok := a.records[actor]
	if !ok {
		return models.ScoreRecord{}, false
	}
	return *r, true
}

// Snapshots 按注册顺序返回所有记录的副本
func (a *Aggregator) Snapshots() []models.ScoreRecord {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	out := make([]models.ScoreRecord, 0, len(a.order))
	for _, actor := range a.order {
		out = append(out, *a.records[actor])
	}
	return out
}

// Freeze 冻结计分，之后所有修改返回 ErrFrozen
func (a *Aggregator) Freeze() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.frozen = true
}

// Frozen 是否已冻结
func (a *Aggregator) Frozen() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.frozen
}

// Result 按分数比较得出胜者，最高分并列时为平局
func (a *Aggregator) Result() models.MatchResult {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	result := models.MatchResult{Scores: make(map[models.ActorID]int, len(a.records))}
	best := 0
	leaders := 0
	for _, actor := range a.order {
		s := a.records[actor].Score
		result.Scores[actor] = s
		switch {
		case leaders == 0 || s > best:
			best = s
			leaders = 1
			result.Winner = actor
		case s == best:
			leaders++
		}
	}

	if leaders > 1 {
		result.Winner = models.NoActor
		result.Tie = true
	}
	return result
}
