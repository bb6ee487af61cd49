package repository

import (
	"context"
	"finguard_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ReportRepository struct {
	DB *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

// HeatmapFilter 热力图查询条件
type HeatmapFilter struct {
	Category string
	Since    *time.Time
}

// HeatmapPoint 热力图只需要坐标
type HeatmapPoint struct {
	Latitude  float64
	Longitude float64
}

func (r *ReportRepository) Create(ctx context.Context, report *model.ScamReport) error {
	return r.DB.WithContext(ctx).Create(report).Error
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*model.ScamReport, error) {
	var report model.ScamReport
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ScamReport, error) {
	var reports []model.ScamReport
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status model.ReportStatus) error {
	res := r.DB.WithContext(ctx).Model(&model.ScamReport{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HeatmapPoints 返回未被驳回的举报坐标
func (r *ReportRepository) HeatmapPoints(ctx context.Context, f HeatmapFilter) ([]HeatmapPoint, error) {
	var points []HeatmapPoint
	query := r.DB.WithContext(ctx).Model(&model.ScamReport{}).
		Select("latitude, longitude").
		Where("status <> ?", model.ReportRejected)
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Since != nil {
		query = query.Where("created_at >= ?", *f.Since)
	}
	err := query.Scan(&points).Error
	return points, err
}
