package repository

import (
	"context"
	"finguard_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

// ListActive 按目录顺序返回启用的徽章
func (r *BadgeRepository) ListActive(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) ListAll(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) FindByName(ctx context.Context, name string) (*model.Badge, error) {
	var badge model.Badge
	err := r.DB.WithContext(ctx).Where("name = ?", name).First(&badge).Error
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *BadgeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Badge{}).Count(&count).Error
	return count, err
}

// Upsert 按名称插入或更新目录项（管理脚本使用）。
// is_active 带默认值，false 不会出现在 INSERT 中，需单独写一次
func (r *BadgeRepository) Upsert(ctx context.Context, badge *model.Badge) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"description", "icon", "color", "xp_reward", "condition",
				"rarity", "category", "requirements", "sort_order", "updated_at",
			}),
		}).Create(badge).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.Badge{}).
			Where("name = ?", badge.Name).
			Update("is_active", badge.IsActive).Error
	})
}

func (r *BadgeRepository) SetActive(ctx context.Context, name string, active bool) error {
	res := r.DB.WithContext(ctx).Model(&model.Badge{}).
		Where("name = ?", name).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// EarnedBadgeIDs 用户已获得的徽章 ID 集合
func (r *BadgeRepository) EarnedBadgeIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error
	if err != nil {
		return nil, err
	}
	held := make(map[uint]bool, len(ids))
	for _, id := range ids {
		held[id] = true
	}
	return held, nil
}

func (r *BadgeRepository) ListEarned(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var items []model.UserBadge
	err := r.DB.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *BadgeRepository) SetFavorite(ctx context.Context, userID, badgeID uint, favorite bool) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Update("is_favorite", favorite)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GrantTx 事务内创建 UserBadge，与 XP 奖励一起提交
func (r *BadgeRepository) GrantTx(tx *gorm.DB, ub *model.UserBadge) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// EarnedNames 用户已获得的徽章名称，按获得顺序
func (r *BadgeRepository) EarnedNames(ctx context.Context, userID uint) ([]string, error) {
	var names []string
	err := r.DB.WithContext(ctx).
		Table("user_badges").
		Select("badges.name").
		Joins("JOIN badges ON badges.id = user_badges.badge_id").
		Where("user_badges.user_id = ?", userID).
		Order("user_badges.earned_at ASC, user_badges.id ASC").
		Pluck("badges.name", &names).Error
	return names, err
}
