package service

import (
	"context"
	"encoding/json"
	"errors"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/util"
	"finguard_backend/pkg/logger"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserBadgeView GET /badges/me 的单项
type UserBadgeView struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	Color       string            `json:"color"`
	Rarity      model.BadgeRarity `json:"rarity"`
	Category    string            `json:"category"`
	XPReward    int               `json:"xpReward"`
	EarnedAt    time.Time         `json:"earnedAt"`
	IsFavorite  bool              `json:"isFavorite"`
	Score       int               `json:"score,omitempty"`
	Difficulty  string            `json:"difficulty,omitempty"`
}

// BadgeSpec 徽章目录文件中的一项
type BadgeSpec struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Icon         string   `yaml:"icon"`
	Color        string   `yaml:"color"`
	XPReward     int      `yaml:"xpReward"`
	Condition    string   `yaml:"condition"`
	Rarity       string   `yaml:"rarity"`
	Category     string   `yaml:"category"`
	Requirements []string `yaml:"requirements"`
	Inactive     bool     `yaml:"inactive"`
}

type badgeCatalogFile struct {
	Badges []BadgeSpec `yaml:"badges"`
}

type BadgeService struct {
	BadgeRepo *repository.BadgeRepository
}

func NewBadgeService(badgeRepo *repository.BadgeRepository) *BadgeService {
	return &BadgeService{BadgeRepo: badgeRepo}
}

// Catalog 启用的徽章目录
func (s *BadgeService) Catalog(ctx context.Context) ([]model.Badge, error) {
	return s.BadgeRepo.ListActive(ctx)
}

// AllBadges 含未启用的徽章，管理端使用
func (s *BadgeService) AllBadges(ctx context.Context) ([]model.Badge, error) {
	return s.BadgeRepo.ListAll(ctx)
}

func (s *BadgeService) Earned(ctx context.Context, userID uint) ([]UserBadgeView, error) {
	items, err := s.BadgeRepo.ListEarned(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]UserBadgeView, 0, len(items))
	for _, ub := range items {
		views = append(views, toUserBadgeView(ub))
	}
	return views, nil
}

func toUserBadgeView(ub model.UserBadge) UserBadgeView {
	return UserBadgeView{
		Name:        ub.Badge.Name,
		Description: ub.Badge.Description,
		Icon:        ub.Badge.Icon,
		Color:       ub.Badge.Color,
		Rarity:      ub.Badge.Rarity,
		Category:    ub.Badge.Category,
		XPReward:    ub.Badge.XPReward,
		EarnedAt:    ub.EarnedAt,
		IsFavorite:  ub.IsFavorite,
		Score:       ub.Score,
		Difficulty:  ub.Difficulty,
	}
}

// SetFavorite 仅影响展示，只能收藏已获得的徽章
func (s *BadgeService) SetFavorite(ctx context.Context, userID uint, name string, favorite bool) (*UserBadgeView, error) {
	badge, err := s.BadgeRepo.FindByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrBadgeNotFound
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.BadgeRepo.SetFavorite(ctx, userID, badge.ID, favorite)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrBadgeNotEarned
	}

	items, err := s.BadgeRepo.ListEarned(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, ub := range items {
		if ub.BadgeID == badge.ID {
			view := toUserBadgeView(ub)
			return &view, nil
		}
	}
	return nil, util.ErrBadgeNotEarned
}

func (s *BadgeService) SetActive(ctx context.Context, name string, active bool) error {
	err := s.BadgeRepo.SetActive(ctx, name, active)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrBadgeNotFound
	}
	return err
}

// EnsureCatalog 目录为空时导入：优先读取 path，文件不存在时使用内置目录
func (s *BadgeService) EnsureCatalog(ctx context.Context, path string) error {
	count, err := s.BadgeRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	specs, err := LoadBadgeCatalog(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Log.Info("Badge catalog file not found, using built-in catalog", zap.String("path", path))
		specs = DefaultBadgeCatalog()
	} else if err != nil {
		return err
	}

	n, err := s.Import(ctx, specs)
	if err != nil {
		return err
	}
	logger.Log.Info("Badge catalog seeded", zap.Int("count", n))
	return nil
}

// Import 按名称 upsert，目录顺序即文件顺序
func (s *BadgeService) Import(ctx context.Context, specs []BadgeSpec) (int, error) {
	for i, spec := range specs {
		badge, err := spec.toModel(i + 1)
		if err != nil {
			return i, err
		}
		if err := s.BadgeRepo.Upsert(ctx, badge); err != nil {
			return i, fmt.Errorf("upsert badge %q: %w", spec.Name, err)
		}
	}
	return len(specs), nil
}

func (spec BadgeSpec) toModel(order int) (*model.Badge, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("badge #%d has no name", order)
	}
	if _, ok := LookupCondition(spec.Condition); !ok {
		return nil, fmt.Errorf("badge %q has unknown condition %q", spec.Name, spec.Condition)
	}
	reqs := spec.Requirements
	if reqs == nil {
		reqs = []string{}
	}
	raw, err := json.Marshal(reqs)
	if err != nil {
		return nil, err
	}
	rarity := model.BadgeRarity(spec.Rarity)
	if rarity == "" {
		rarity = model.RarityCommon
	}
	return &model.Badge{
		Name:         spec.Name,
		Description:  spec.Description,
		Icon:         spec.Icon,
		Color:        spec.Color,
		XPReward:     spec.XPReward,
		Condition:    spec.Condition,
		Rarity:       rarity,
		Category:     spec.Category,
		Requirements: datatypes.JSON(raw),
		IsActive:     !spec.Inactive,
		SortOrder:    order,
	}, nil
}

// LoadBadgeCatalog 读取 YAML 目录文件
func LoadBadgeCatalog(path string) ([]BadgeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file badgeCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse badge catalog %s: %w", path, err)
	}
	return file.Badges, nil
}

// DefaultBadgeCatalog 内置目录，与 configs/badges.yaml 保持一致
func DefaultBadgeCatalog() []BadgeSpec {
	return []BadgeSpec{
		{Name: "First Steps", Description: "Complete your first course", Icon: "school", Color: "#4CAF50", XPReward: 10, Condition: "complete_first_course", Rarity: "common", Category: "learning", Requirements: []string{"Complete 1 course"}},
		{Name: "Course Explorer", Description: "Complete 5 courses", Icon: "explore", Color: "#2196F3", XPReward: 50, Condition: "complete_5_courses", Rarity: "uncommon", Category: "learning", Requirements: []string{"Complete 5 courses"}},
		{Name: "Knowledge Seeker", Description: "Complete 10 courses", Icon: "auto_stories", Color: "#3F51B5", XPReward: 100, Condition: "complete_10_courses", Rarity: "rare", Category: "learning", Requirements: []string{"Complete 10 courses"}},
		{Name: "Lesson Learner", Description: "Complete 10 lessons", Icon: "menu_book", Color: "#009688", XPReward: 20, Condition: "complete_10_lessons", Rarity: "common", Category: "learning", Requirements: []string{"Complete 10 lessons"}},
		{Name: "Quiz Beginner", Description: "Complete your first quiz", Icon: "quiz", Color: "#FF9800", XPReward: 10, Condition: "complete_first_quiz", Rarity: "common", Category: "quiz", Requirements: []string{"Complete 1 quiz"}},
		{Name: "Quiz Enthusiast", Description: "Complete 5 quizzes", Icon: "psychology", Color: "#FF5722", XPReward: 25, Condition: "complete_5_quizzes", Rarity: "uncommon", Category: "quiz", Requirements: []string{"Complete 5 quizzes"}},
		{Name: "Quiz Master", Description: "Complete 10 quizzes", Icon: "emoji_events", Color: "#F44336", XPReward: 50, Condition: "complete_10_quizzes", Rarity: "rare", Category: "quiz", Requirements: []string{"Complete 10 quizzes"}},
		{Name: "Perfect Score", Description: "Score 100 on a quiz", Icon: "star", Color: "#FFC107", XPReward: 20, Condition: "perfect_quiz_score", Rarity: "uncommon", Category: "quiz", Requirements: []string{"Score 100 on any quiz"}},
		{Name: "Quiz Champion", Description: "Score 100 on 5 quizzes", Icon: "military_tech", Color: "#FFD700", XPReward: 50, Condition: "perfect_5_quiz_scores", Rarity: "epic", Category: "quiz", Requirements: []string{"Score 100 on 5 quizzes"}},
		{Name: "Scam Spotter", Description: "Complete your first scam scenario", Icon: "visibility", Color: "#9C27B0", XPReward: 10, Condition: "complete_first_scenario", Rarity: "common", Category: "security", Requirements: []string{"Complete 1 scenario"}},
		{Name: "Fraud Fighter", Description: "Complete 5 scam scenarios", Icon: "shield", Color: "#673AB7", XPReward: 40, Condition: "complete_5_scenarios", Rarity: "rare", Category: "security", Requirements: []string{"Complete 5 scenarios"}},
		{Name: "Tool Explorer", Description: "Use a security tool", Icon: "build", Color: "#607D8B", XPReward: 5, Condition: "use_first_tool", Rarity: "common", Category: "tools", Requirements: []string{"Use any tool once"}},
		{Name: "Cyber Detective", Description: "Use security tools 10 times", Icon: "policy", Color: "#455A64", XPReward: 30, Condition: "use_10_tools", Rarity: "uncommon", Category: "tools", Requirements: []string{"Use tools 10 times"}},
		{Name: "Consistent Learner", Description: "Keep a 3 day streak", Icon: "local_fire_department", Color: "#FF7043", XPReward: 15, Condition: "streak_3_days", Rarity: "common", Category: "streak", Requirements: []string{"Log in 3 days in a row"}},
		{Name: "Week Warrior", Description: "Keep a 7 day streak", Icon: "whatshot", Color: "#E64A19", XPReward: 35, Condition: "streak_7_days", Rarity: "uncommon", Category: "streak", Requirements: []string{"Log in 7 days in a row"}},
		{Name: "Monthly Master", Description: "Keep a 30 day streak", Icon: "calendar_month", Color: "#BF360C", XPReward: 150, Condition: "streak_30_days", Rarity: "legendary", Category: "streak", Requirements: []string{"Log in 30 days in a row"}},
		{Name: "Rising Star", Description: "Reach level 5", Icon: "trending_up", Color: "#00BCD4", XPReward: 0, Condition: "reach_level_5", Rarity: "rare", Category: "level", Requirements: []string{"Reach level 5"}},
		{Name: "Finance Guru", Description: "Reach level 10", Icon: "workspace_premium", Color: "#006064", XPReward: 0, Condition: "reach_level_10", Rarity: "epic", Category: "level", Requirements: []string{"Reach level 10"}},
	}
}
