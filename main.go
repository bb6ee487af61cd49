// @title FinGuard 后端 API
// @version 1.0
// @description 金融素养与反诈学习应用的后端服务：经验值、等级、徽章、连续签到与反诈工具。

// @contact.name API支持
// @contact.email support@finguard.app

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"errors"
	"finguard_backend/internal/app"
	"finguard_backend/internal/config"
	"finguard_backend/pkg/logger"
	"flag"
	"fmt"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	envFile := flag.String("env", ".env", "环境变量文件，不存在时忽略")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	showVersion := flag.Bool("version", false, "打印版本号后退出")
	flag.Parse()

	if *showVersion {
		fmt.Println("finguard_backend", version)
		return
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load env file %s: %v", *envFile, err)
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", *configDir, err)
	}
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if cfg.MigrateOnly {
		logger.Log.Info("Database migration finished, exiting", zap.String("version", version))
		return
	}

	logger.Log.Info("Starting finguard backend", zap.String("version", version), zap.String("port", cfg.Server.Port))
	application.Run()
}
