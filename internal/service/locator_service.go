package service

import (
	"context"
	"errors"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/util"
	"finguard_backend/pkg/logger"
	"fmt"
	"math"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const earthRadiusKm = 6371.0

// searchRadiusKm 包围盒粗筛半径，结果不足时退回全表
const searchRadiusKm = 300.0

type NearbyCell struct {
	model.CyberCell
	DistanceKm float64 `json:"distanceKm"`
}

type NearestResult struct {
	Cells       []NearbyCell `json:"cells"`
	Progression *EventResult `json:"progression,omitempty"`
}

type LocatorService struct {
	Repo        *repository.CyberCellRepository
	Progression *ProgressionService
}

func NewLocatorService(repo *repository.CyberCellRepository, progression *ProgressionService) *LocatorService {
	return &LocatorService{Repo: repo, Progression: progression}
}

// HaversineKm 两点间大圆距离
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lng)
}

// Nearest 按距离升序返回最近的报案点，并记一次工具使用
func (s *LocatorService) Nearest(ctx context.Context, userID uint, lat, lng float64, limit int) (*NearestResult, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, util.ErrInvalidCoordinates
	}
	if limit <= 0 {
		limit = 5
	}

	dLat := searchRadiusKm / 111.0
	dLng := dLat / math.Max(math.Cos(lat*math.Pi/180), 0.01)
	cells, err := s.Repo.WithinBox(ctx, lat-dLat, lat+dLat, lng-dLng, lng+dLng)
	if err != nil {
		return nil, err
	}
	if len(cells) < limit {
		if cells, err = s.Repo.List(ctx, ""); err != nil {
			return nil, err
		}
	}

	nearby := make([]NearbyCell, 0, len(cells))
	for _, c := range cells {
		d := HaversineKm(lat, lng, c.Latitude, c.Longitude)
		nearby = append(nearby, NearbyCell{
			CyberCell:  c,
			DistanceKm: math.Round(d*100) / 100,
		})
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}

	result := &NearestResult{Cells: nearby}
	if s.Progression != nil {
		result.Progression = s.Progression.RecordToolUse(ctx, userID, util.ToolCyberCellLocator)
	}
	return result, nil
}

func (s *LocatorService) List(ctx context.Context, state string) ([]model.CyberCell, error) {
	return s.Repo.List(ctx, state)
}

type cyberCellFile struct {
	Cells []model.CyberCell `yaml:"cells"`
}

// LoadCyberCells 读取 YAML 种子文件
func LoadCyberCells(path string) ([]model.CyberCell, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file cyberCellFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse cyber cells %s: %w", path, err)
	}
	for i, c := range file.Cells {
		if c.Name == "" || !ValidCoordinates(c.Latitude, c.Longitude) {
			return nil, fmt.Errorf("cyber cell #%d (%q) is invalid", i+1, c.Name)
		}
	}
	return file.Cells, nil
}

// EnsureCells 表为空时从文件导入
func (s *LocatorService) EnsureCells(ctx context.Context, path string) error {
	count, err := s.Repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	cells, err := LoadCyberCells(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Log.Warn("Cyber cell seed file not found", zap.String("path", path))
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Repo.CreateBatch(ctx, cells); err != nil {
		return err
	}
	logger.Log.Info("Cyber cells seeded", zap.Int("count", len(cells)))
	return nil
}
