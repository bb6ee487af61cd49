package app

import (
	"finguard_backend/docs"
	"finguard_backend/internal/config"
	"finguard_backend/internal/middleware"
	"finguard_backend/internal/model"
	"finguard_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerProgressionRoutes(authGroup, c)
		a.registerLearningRoutes(authGroup, c)
		a.registerToolRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		auth := public.Group("/auth")
		{
			auth.POST("/register", c.auth.Register)
			auth.POST("/login", c.auth.Login)
			auth.POST("/otp/request", c.auth.RequestOTP)
			auth.POST("/otp/verify", c.auth.VerifyOTP)
			auth.POST("/password/forgot", c.auth.ForgotPassword)
			auth.POST("/password/reset", c.auth.ResetPassword)
		}
	}
}

func (a *App) registerProgressionRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/users/me", c.auth.GetProfile)
	rg.PATCH("/users/me", c.auth.UpdateProfile)

	// 进度/经验值
	progression := rg.Group("/progression")
	{
		progression.GET("", c.progression.GetProgression)
		progression.GET("/activity", c.progression.GetActivity)
		progression.POST("/courses/complete", c.progression.CompleteCourse)
		progression.POST("/lessons/complete", c.progression.CompleteLesson)
		progression.POST("/quizzes/complete", c.progression.CompleteQuiz)
		progression.POST("/scenarios/complete", c.progression.CompleteScenario)
		progression.POST("/tools/use", c.progression.UseTool)
		progression.POST("/streak", c.progression.UpdateStreak)
	}

	// 徽章
	rg.GET("/badges", c.badge.GetCatalog)
	rg.GET("/badges/me", c.badge.GetMyBadges)
	rg.PATCH("/badges/:name/favorite", c.badge.SetFavorite)

	rg.GET("/leaderboard", c.leaderboard.GetLeaderboard)
}

func (a *App) registerLearningRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/courses", c.content.ListCourses)
	rg.GET("/courses/:id", c.content.GetCourse)
	rg.POST("/lessons/:id/complete", c.content.CompleteLesson)

	rg.GET("/quizzes", c.content.ListQuizzes)
	rg.GET("/quizzes/:id", c.content.GetQuiz)
	rg.POST("/quizzes/:id/submit", c.content.SubmitQuiz)

	rg.GET("/scenarios", c.content.ListScenarios)
	rg.GET("/scenarios/:id", c.content.GetScenario)
	rg.POST("/scenarios/:id/choose", c.content.SubmitScenarioChoice)
}

func (a *App) registerToolRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/tools/url-check", c.tool.CheckURL)
	rg.POST("/tools/message-check", c.tool.CheckMessage)

	rg.GET("/cyber-cells", c.cyberCell.List)
	rg.GET("/cyber-cells/nearest", c.cyberCell.Nearest)

	rg.POST("/reports", c.report.Submit)
	rg.GET("/reports/me", c.report.Mine)
	rg.GET("/reports/heatmap", c.report.Heatmap)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/badges", c.badge.AdminListBadges)
		admin.PATCH("/badges/:name/active", c.badge.SetActive)

		admin.POST("/courses", c.content.CreateCourse)
		admin.POST("/quizzes", c.content.CreateQuiz)
		admin.POST("/scenarios", c.content.CreateScenario)

		admin.PATCH("/reports/:id/status", c.report.UpdateStatus)
	}
}
