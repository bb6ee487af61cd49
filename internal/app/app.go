package app

import (
	"context"
	"errors"
	"finguard_backend/internal/config"
	"finguard_backend/internal/controller"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/service"
	"finguard_backend/pkg/configwatcher"
	"finguard_backend/pkg/database"
	"finguard_backend/pkg/logger"
	"finguard_backend/pkg/monitoring"
	"finguard_backend/pkg/security"
	"finguard_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	progression *repository.ProgressionRepository
	badge       *repository.BadgeRepository
	content     *repository.ContentRepository
	cyberCell   *repository.CyberCellRepository
	report      *repository.ReportRepository
	otp         *repository.OTPRepository
}

type services struct {
	progression *service.ProgressionService
	badge       *service.BadgeService
	leaderboard *service.LeaderboardService
	otp         *service.OTPService
	auth        *service.AuthService
	content     *service.ContentService
	storage     *service.StorageService
	locator     *service.LocatorService
	fraud       *service.FraudAnalysisService
	report      *service.ReportService
}

type controllers struct {
	auth        *controller.AuthController
	progression *controller.ProgressionController
	badge       *controller.BadgeController
	leaderboard *controller.LeaderboardController
	content     *controller.ContentController
	cyberCell   *controller.CyberCellController
	tool        *controller.ToolController
	report      *controller.ReportController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		progression: repository.NewProgressionRepository(db),
		badge:       repository.NewBadgeRepository(db),
		content:     repository.NewContentRepository(db),
		cyberCell:   repository.NewCyberCellRepository(db),
		report:      repository.NewReportRepository(db),
		otp:         repository.NewOTPRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.progression = service.NewProgressionService(repos.progression, repos.badge, repos.content, cfg)
	s.badge = service.NewBadgeService(repos.badge)
	s.leaderboard = service.NewLeaderboardService(repos.progression, rdb, cfg)
	s.otp = service.NewOTPService(repos.otp, rdb, service.LogMailer{}, cfg)
	s.auth = service.NewAuthService(repos.user, s.otp, cfg)
	s.content = service.NewContentService(repos.content, repos.progression, s.progression)
	s.storage = service.NewStorageService(cfg)
	s.locator = service.NewLocatorService(repos.cyberCell, s.progression)
	s.fraud = service.NewFraudAnalysisService(rdb, s.progression, cfg)
	s.report = service.NewReportService(repos.report, s.storage, s.progression, cfg)

	return s
}

func (a *App) initControllers(s *services, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		progression: controller.NewProgressionController(s.progression, cfg),
		badge:       controller.NewBadgeController(s.badge),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		content:     controller.NewContentController(s.content),
		cyberCell:   controller.NewCyberCellController(s.locator),
		tool:        controller.NewToolController(s.fraud),
		report:      controller.NewReportController(s.report),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// Build 用已经初始化好的数据库和 Redis 组装应用，rdb 可以为 nil
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(app.services, cfg, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	leaderboard := app.services.leaderboard
	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
	})
	app.RegisterConfigCallback(func(c *config.Config) {
		leaderboard.SetCacheTTL(time.Duration(c.Gamification.LeaderboardCacheSecs) * time.Second)
	})

	return app
}

// Seed 徽章目录和报案点为空时写入初始数据
func (a *App) Seed(ctx context.Context) error {
	if err := a.services.badge.EnsureCatalog(ctx, a.Config.Seed.BadgesFile); err != nil {
		return err
	}
	return a.services.locator.EnsureCells(ctx, a.Config.Seed.CyberCellsFile)
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode == gin.DebugMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := Build(cfg, db, rdb)
	if cfg.MigrateOnly {
		return app
	}

	if err := app.Seed(context.Background()); err != nil {
		logger.Log.Fatal("Failed to seed reference data", zap.Error(err))
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) watchConfig(ctx context.Context) {
	if a.Config.ConfigFile == "" {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(ctx, a.Config.ConfigFile, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	a.watchConfig(watchCtx)

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
