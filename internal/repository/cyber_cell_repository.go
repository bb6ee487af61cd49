package repository

import (
	"context"
	"finguard_backend/internal/model"

	"gorm.io/gorm"
)

type CyberCellRepository struct {
	DB *gorm.DB
}

func NewCyberCellRepository(db *gorm.DB) *CyberCellRepository {
	return &CyberCellRepository{DB: db}
}

func (r *CyberCellRepository) List(ctx context.Context, state string) ([]model.CyberCell, error) {
	var cells []model.CyberCell
	query := r.DB.WithContext(ctx)
	if state != "" {
		query = query.Where("LOWER(state) = LOWER(?)", state)
	}
	err := query.Order("state ASC, name ASC").Find(&cells).Error
	return cells, err
}

// WithinBox 先用经纬度包围盒粗筛，精确距离由服务层计算
func (r *CyberCellRepository) WithinBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]model.CyberCell, error) {
	var cells []model.CyberCell
	err := r.DB.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng).
		Find(&cells).Error
	return cells, err
}

func (r *CyberCellRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CyberCell{}).Count(&count).Error
	return count, err
}

func (r *CyberCellRepository) CreateBatch(ctx context.Context, cells []model.CyberCell) error {
	if len(cells) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).CreateInBatches(cells, 100).Error
}

// ReplaceAll 清空后重新导入（seed 脚本 --replace）
func (r *CyberCellRepository) ReplaceAll(ctx context.Context, cells []model.CyberCell) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&model.CyberCell{}).Error; err != nil {
			return err
		}
		if len(cells) == 0 {
			return nil
		}
		return tx.CreateInBatches(cells, 100).Error
	})
}
