// recorder.go

package game

import (
	"context"
	"errors"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// Recorder 对局结果的持久化接收方
type Recorder interface {
	RecordMatch(ctx context.Context, match models.MatchRecord, players []models.PlayerMatchRecord) error
}

// Recorders 依次写入多个接收方，单个失败不影响其他接收方
type Recorders []Recorder

// RecordMatch 写入所有接收方，返回合并后的错误
func (rs Recorders) RecordMatch(ctx context.Context, match models.MatchRecord, players []models.PlayerMatchRecord) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordMatch(ctx, match, players); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ProfileSource 玩家资料来源
type ProfileSource interface {
	GetOrCreate(ctx context.Context, name string) (*models.PlayerProfile, error)
}
