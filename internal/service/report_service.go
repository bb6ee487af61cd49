package service

import (
	"context"
	"errors"
	"finguard_backend/internal/config"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/util"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultHeatmapPrecision = 2
	maxHeatmapPrecision     = 4
)

type ReportInput struct {
	Category    string
	Description string
	Latitude    float64
	Longitude   float64
	City        string
	AmountLost  float64
	OccurredAt  *time.Time
}

type HeatmapQuery struct {
	Category  string
	Days      int
	Precision int
}

type HeatCell struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Count     int     `json:"count"`
}

type ReportReceipt struct {
	Report      *model.ScamReport `json:"report"`
	Progression *EventResult      `json:"progression,omitempty"`
}

type ReportService struct {
	Repo        *repository.ReportRepository
	Storage     *StorageService
	Progression *ProgressionService
	MaxUpload   int64
	Now         func() time.Time
}

func NewReportService(repo *repository.ReportRepository, storage *StorageService, progression *ProgressionService, cfg *config.Config) *ReportService {
	return &ReportService{
		Repo:        repo,
		Storage:     storage,
		Progression: progression,
		MaxUpload:   cfg.Storage.MaxUploadMB << 20,
		Now:         time.Now,
	}
}

// Submit 保存举报，证据文件可选（图片或 PDF）
func (s *ReportService) Submit(ctx context.Context, userID uint, in ReportInput, evidence *multipart.FileHeader) (*ReportReceipt, error) {
	if !ValidCoordinates(in.Latitude, in.Longitude) {
		return nil, util.ErrInvalidCoordinates
	}

	report := &model.ScamReport{
		UserID:      userID,
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Description: in.Description,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		City:        in.City,
		AmountLost:  in.AmountLost,
		Status:      model.ReportPending,
		OccurredAt:  in.OccurredAt,
	}

	if evidence != nil {
		url, err := s.storeEvidence(ctx, evidence)
		if err != nil {
			return nil, err
		}
		report.EvidenceURL = url
	}

	if err := s.Repo.Create(ctx, report); err != nil {
		return nil, err
	}

	receipt := &ReportReceipt{Report: report}
	if s.Progression != nil {
		receipt.Progression = s.Progression.RecordToolUse(ctx, userID, util.ToolScamReport)
	}
	return receipt, nil
}

func (s *ReportService) storeEvidence(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if s.MaxUpload > 0 && fh.Size > s.MaxUpload {
		return "", util.ErrFileTooLarge
	}
	file, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	mimeType, err := util.ValidateMimeType(file, util.AllowedEvidenceTypes)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	key := path.Join("evidence", s.Now().Format("2006/01"), uuid.New().String()+util.ExtensionFor(mimeType))
	url, err := s.Storage.Upload(ctx, key, file, fh.Size, mimeType)
	if err != nil {
		return "", fmt.Errorf("upload evidence: %w", err)
	}
	return url, nil
}

func (s *ReportService) Mine(ctx context.Context, userID uint, limit int) ([]model.ScamReport, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

// Heatmap 按精度四舍五入坐标后聚合，驳回的举报不计入
func (s *ReportService) Heatmap(ctx context.Context, q HeatmapQuery) ([]HeatCell, error) {
	precision := q.Precision
	if precision <= 0 {
		precision = defaultHeatmapPrecision
	}
	if precision > maxHeatmapPrecision {
		precision = maxHeatmapPrecision
	}

	filter := repository.HeatmapFilter{Category: strings.ToLower(strings.TrimSpace(q.Category))}
	if q.Days > 0 {
		since := s.Now().AddDate(0, 0, -q.Days)
		filter.Since = &since
	}

	points, err := s.Repo.HeatmapPoints(ctx, filter)
	if err != nil {
		return nil, err
	}
	return aggregateHeatmap(points, precision), nil
}

func roundTo(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

func aggregateHeatmap(points []repository.HeatmapPoint, precision int) []HeatCell {
	type cellKey struct{ lat, lng float64 }
	counts := make(map[cellKey]int)
	for _, p := range points {
		counts[cellKey{roundTo(p.Latitude, precision), roundTo(p.Longitude, precision)}]++
	}

	cells := make([]HeatCell, 0, len(counts))
	for k, n := range counts {
		cells = append(cells, HeatCell{Latitude: k.lat, Longitude: k.lng, Count: n})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Count != cells[j].Count {
			return cells[i].Count > cells[j].Count
		}
		if cells[i].Latitude != cells[j].Latitude {
			return cells[i].Latitude < cells[j].Latitude
		}
		return cells[i].Longitude < cells[j].Longitude
	})
	return cells
}

func (s *ReportService) UpdateStatus(ctx context.Context, id string, status model.ReportStatus) (*model.ScamReport, error) {
	switch status {
	case model.ReportPending, model.ReportVerified, model.ReportRejected:
	default:
		return nil, util.ErrInvalidStatus
	}
	if err := s.Repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrReportNotFound
		}
		return nil, err
	}
	return s.Repo.FindByID(ctx, id)
}
