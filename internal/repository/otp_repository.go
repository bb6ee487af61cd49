package repository

import (
	"context"
	"errors"
	"finguard_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type OTPRepository struct {
	DB *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{DB: db}
}

// Replace 作废该邮箱同用途的旧验证码并写入新验证码
func (r *OTPRepository) Replace(ctx context.Context, code *model.OTPCode) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND purpose = ? AND consumed_at IS NULL", code.Email, code.Purpose).
			Delete(&model.OTPCode{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	})
}

// FindActive 最近一条未使用且未过期的验证码
func (r *OTPRepository) FindActive(ctx context.Context, email string, purpose model.OTPPurpose, now time.Time) (*model.OTPCode, error) {
	var code model.OTPCode
	err := r.DB.WithContext(ctx).
		Where("email = ? AND purpose = ? AND consumed_at IS NULL AND expires_at > ?", email, purpose, now).
		Order("id DESC").
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// LatestCreatedAt 未配置 Redis 时用于发送频率限制
func (r *OTPRepository) LatestCreatedAt(ctx context.Context, email string, purpose model.OTPPurpose) (*time.Time, error) {
	var code model.OTPCode
	err := r.DB.WithContext(ctx).Unscoped().
		Where("email = ? AND purpose = ?", email, purpose).
		Order("id DESC").
		First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code.CreatedAt, nil
}

// Discard 物理删除未成功投递的验证码，不参与发送频率计算
func (r *OTPRepository) Discard(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Unscoped().Delete(&model.OTPCode{}, id).Error
}

func (r *OTPRepository) IncrementAttempts(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.OTPCode{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}

// Consume 标记为已使用；并发校验同一验证码时只有一方成功
func (r *OTPRepository) Consume(ctx context.Context, id uint, now time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.OTPCode{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
