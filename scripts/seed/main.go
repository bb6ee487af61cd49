// 导入徽章目录与网络犯罪报案点
//
// 服务启动时只在表为空时导入；修改 YAML 后用此脚本手动同步。
//
// 用法:
//
//	go run ./scripts/seed badges --file configs/badges.yaml
//	go run ./scripts/seed cells --file configs/cyber_cells.yaml --replace
package main

import (
	"finguard_backend/internal/config"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/service"
	"finguard_backend/pkg/database"
	"finguard_backend/pkg/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	configDir    string
	seedFile     string
	replaceCells bool
)

var rootCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Seed FinGuard reference data",
	SilenceUsage: true,
}

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "Upsert the badge catalog from YAML",
	Long: `Upsert every badge in the YAML catalog by name.

Badges missing from the file are left untouched; deactivate them
through the admin API instead of deleting, so earned badges keep
their history.`,
	RunE: runBadges,
}

var cellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "Import cybercrime cells from YAML",
	RunE:  runCells,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations only",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := open()
		if err != nil {
			return err
		}
		return database.Migrate(db)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "configs", "config directory")
	badgesCmd.Flags().StringVarP(&seedFile, "file", "f", "", "badge catalog file (default from config)")
	cellsCmd.Flags().StringVarP(&seedFile, "file", "f", "", "cyber cell file (default from config)")
	cellsCmd.Flags().BoolVar(&replaceCells, "replace", false, "delete existing cells before import")

	rootCmd.AddCommand(badgesCmd, cellsCmd, migrateCmd)
}

func open() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

func runBadges(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	path := seedFile
	if path == "" {
		path = cfg.Seed.BadgesFile
	}

	specs, err := service.LoadBadgeCatalog(path)
	if err != nil {
		return err
	}
	badges := service.NewBadgeService(repository.NewBadgeRepository(db))
	n, err := badges.Import(cmd.Context(), specs)
	if err != nil {
		return err
	}
	logger.Log.Info("Badge catalog imported", zap.String("file", path), zap.Int("count", n))
	return nil
}

func runCells(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	path := seedFile
	if path == "" {
		path = cfg.Seed.CyberCellsFile
	}

	cells, err := service.LoadCyberCells(path)
	if err != nil {
		return err
	}
	repo := repository.NewCyberCellRepository(db)
	if replaceCells {
		err = repo.ReplaceAll(cmd.Context(), cells)
	} else {
		err = repo.CreateBatch(cmd.Context(), cells)
	}
	if err != nil {
		return err
	}
	logger.Log.Info("Cyber cells imported", zap.String("file", path), zap.Int("count", len(cells)), zap.Bool("replace", replaceCells))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
