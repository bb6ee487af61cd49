// Package testutil 测试用的数据库与配置
package testutil

import (
	"finguard_backend/internal/config"
	"finguard_backend/internal/model"
	"finguard_backend/pkg/database"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
)

const TestJWTSecret = "test-secret-with-at-least-32-characters!"

// NewTestConfig 与 configs/config.yaml 默认值一致，时区固定为 UTC
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Mode: "test"},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dir, "test.db"),
		},
		JWT: config.JWTConfig{
			Secret:     TestJWTSecret,
			ExpireTime: time.Hour,
		},
		Storage: config.StorageConfig{
			Type:        "local",
			LocalPath:   filepath.Join(dir, "uploads"),
			MaxUploadMB: 5,
		},
		RateLimit: config.RateLimitConfig{MaxRequests: 0},
		Gamification: config.GamificationConfig{
			Timezone:              "UTC",
			LeaderboardCacheSecs:  60,
			LeaderboardMaxLimit:   100,
			ActivityLogMaxLimit:   100,
			URLAnalysisCacheHours: 24,
		},
		OTP: config.OTPConfig{
			TTLMinutes:    5,
			ResendSeconds: 60,
			MaxAttempts:   5,
			CodeLength:    6,
		},
		Seed: config.SeedConfig{
			BadgesFile:     filepath.Join(dir, "missing-badges.yaml"),
			CyberCellsFile: filepath.Join(dir, "missing-cells.yaml"),
		},
	}
}

// NewTestDB 每个测试一个临时 sqlite 文件，已完成迁移
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := database.InitDB(&cfg, "test")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				t.Logf("Failed to close test database: %v", err)
			}
		}
	})
	return db
}

var userSeq atomic.Int64

// CreateUser 插入一个学习者，密码字段只是占位
func CreateUser(t *testing.T, db *gorm.DB, firstName string) *model.User {
	t.Helper()
	n := userSeq.Add(1)
	user := &model.User{
		FirstName: firstName,
		LastName:  "Tester",
		Email:     fmt.Sprintf("user%d@example.com", n),
		Password:  "-",
		Role:      model.Learner,
		Language:  "en",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}
