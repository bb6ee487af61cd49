package service

import (
	"context"
	"encoding/json"
	"finguard_backend/internal/config"
	"finguard_backend/internal/repository"
	"finguard_backend/pkg/logger"
	"finguard_backend/pkg/monitoring"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const leaderboardCacheKey = "leaderboard:top:%d"

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    uint   `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar"`
	XP        int    `json:"xp"`
	Level     int    `json:"level"`
	Streak    int    `json:"streak"`
}

type LeaderboardService struct {
	Repo     *repository.ProgressionRepository
	Redis    *redis.Client
	MaxLimit int
	// 缓存秒数，配置热更新时修改
	ttl atomic.Int64
}

func NewLeaderboardService(repo *repository.ProgressionRepository, rdb *redis.Client, cfg *config.Config) *LeaderboardService {
	s := &LeaderboardService{
		Repo:     repo,
		Redis:    rdb,
		MaxLimit: cfg.Gamification.LeaderboardMaxLimit,
	}
	s.SetCacheTTL(time.Duration(cfg.Gamification.LeaderboardCacheSecs) * time.Second)
	return s
}

func (s *LeaderboardService) SetCacheTTL(ttl time.Duration) {
	s.ttl.Store(int64(ttl))
}

func (s *LeaderboardService) cacheTTL() time.Duration {
	return time.Duration(s.ttl.Load())
}

// Top 按 XP 降序返回前 limit 名
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}

	key := fmt.Sprintf(leaderboardCacheKey, limit)
	if s.Redis != nil && s.cacheTTL() > 0 {
		if data, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var entries []LeaderboardEntry
			if err := json.Unmarshal(data, &entries); err == nil {
				monitoring.CacheHit("leaderboard")
				return entries, nil
			}
		}
		monitoring.CacheMiss("leaderboard")
	}

	rows, err := s.Repo.TopByXP(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:      i + 1,
			UserID:    row.UserID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Avatar:    row.Avatar,
			XP:        row.XP,
			Level:     row.Level,
			Streak:    row.Streak,
		})
	}

	if s.Redis != nil && s.cacheTTL() > 0 {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.Redis.Set(ctx, key, data, s.cacheTTL()).Err(); err != nil {
				logger.Log.Warn("Failed to cache leaderboard", zap.Error(err))
			}
		}
	}
	return entries, nil
}
