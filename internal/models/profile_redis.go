package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ProfilePrefix 玩家资料键前缀
const ProfilePrefix = "profile:"

// ErrProfileNotFound 玩家资料不存在
var ErrProfileNotFound = errors.New("玩家资料不存在")

// ProfileStore 玩家资料键值存储
type ProfileStore struct {
	client *redis.Client
}

// NewProfileStore 创建资料存储
func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

// ProfileKey 玩家资料键名
func ProfileKey(name string) string {
	return ProfilePrefix + name
}

// Get 读取玩家资料
func (s *ProfileStore) Get(ctx context.Context, name string) (*PlayerProfile, error) {
	data, err := s.client.Get(ctx, ProfileKey(name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("读取玩家资料失败: %w", err)
	}

	var profile PlayerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("解析玩家资料失败: %w", err)
	}
	return &profile, nil
}

// Put 写入玩家资料
func (s *ProfileStore) Put(ctx context.Context, profile *PlayerProfile) error {
	profile.UpdatedAt = time.Now()
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("序列化玩家资料失败: %w", err)
	}
	if err := s.client.Set(ctx, ProfileKey(profile.Name), data, 0).Err(); err != nil {
		return fmt.Errorf("写入玩家资料失败: %w", err)
	}
	return nil
}

// GetOrCreate 读取玩家资料，不存在时返回新资料(不写入)
func (s *ProfileStore) GetOrCreate(ctx context.Context, name string) (*PlayerProfile, error) {
	profile, err := s.Get(ctx, name)
	if errors.Is(err, ErrProfileNotFound) {
		return NewPlayerProfile(name), nil
	}
	return profile, err
}

// RecordMatch 把一局的记录合并进每个玩家的资料
func (s *ProfileStore) RecordMatch(ctx context.Context, match MatchRecord, players []PlayerMatchRecord) error {
	for _, p := range players {
		profile, err := s.GetOrCreate(ctx, string(p.Actor))
		if err != nil {
			return err
		}
		profile.ApplyMatch(p)
		if err := s.Put(ctx, profile); err != nil {
			return fmt.Errorf("对局 %s: %w", match.ID, err)
		}
	}
	return nil
}
