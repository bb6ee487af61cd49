package controller

import (
	"finguard_backend/internal/config"
	"finguard_backend/internal/service"
	"finguard_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressionController struct {
	ProgressionService *service.ProgressionService
	ActivityMaxLimit   int
}

func NewProgressionController(progressionService *service.ProgressionService, cfg *config.Config) *ProgressionController {
	return &ProgressionController{
		ProgressionService: progressionService,
		ActivityMaxLimit:   cfg.Gamification.ActivityLogMaxLimit,
	}
}

type CompleteCourseRequest struct {
	CourseID string `json:"courseId" binding:"required,max=100"`
}

type CompleteLessonRequest struct {
	LessonID string `json:"lessonId" binding:"required,max=100"`
}

type CompleteQuizRequest struct {
	QuizID string `json:"quizId" binding:"required,max=100"`
	Score  *int   `json:"score" binding:"required,min=0,max=100"`
}

type CompleteScenarioRequest struct {
	ScenarioID string `json:"scenarioId" binding:"required,max=100"`
}

type UseToolRequest struct {
	ToolName string `json:"toolName" binding:"required,max=100"`
}

// GetProgression godoc
// @Summary 获取当前用户的游戏化进度
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProgressionView}
// @Failure 401 {object} util.Response
// @Router /progression [get]
func (c *ProgressionController) GetProgression(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	view, err := c.ProgressionService.GetProgression(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

func (c *ProgressionController) respondEvent(ctx *gin.Context, res *service.EventResult, err error) {
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, res.Message, res)
}

// CompleteCourse godoc
// @Summary 完成课程
// @Description 首次完成获得 50 XP，重复提交返回 success=false
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CompleteCourseRequest true "课程ID"
// @Success 200 {object} util.Response{data=service.EventResult}
// @Failure 400 {object} util.Response
// @Router /progression/courses/complete [post]
func (c *ProgressionController) CompleteCourse(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CompleteCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.ProgressionService.CompleteCourse(ctx.Request.Context(), userID, req.CourseID)
	c.respondEvent(ctx, res, err)
}

// CompleteLesson godoc
// @Summary 完成课时
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CompleteLessonRequest true "课时ID"
// @Success 200 {object} util.Response{data=service.EventResult}
// @Router /progression/lessons/complete [post]
func (c *ProgressionController) CompleteLesson(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CompleteLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.ProgressionService.CompleteLesson(ctx.Request.Context(), userID, req.LessonID)
	c.respondEvent(ctx, res, err)
}

// CompleteQuiz godoc
// @Summary 完成测验
// @Description 基础 30 XP，满分额外 20 XP
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CompleteQuizRequest true "测验ID与得分"
// @Success 200 {object} util.Response{data=service.EventResult}
// @Failure 400 {object} util.Response
// @Router /progression/quizzes/complete [post]
func (c *ProgressionController) CompleteQuiz(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CompleteQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.ProgressionService.CompleteQuiz(ctx.Request.Context(), userID, req.QuizID, *req.Score)
	c.respondEvent(ctx, res, err)
}

// CompleteScenario godoc
// @Summary 完成诈骗情景
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CompleteScenarioRequest true "情景ID"
// @Success 200 {object} util.Response{data=service.EventResult}
// @Router /progression/scenarios/complete [post]
func (c *ProgressionController) CompleteScenario(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CompleteScenarioRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.ProgressionService.CompleteScenario(ctx.Request.Context(), userID, req.ScenarioID)
	c.respondEvent(ctx, res, err)
}

// UseTool godoc
// @Summary 记录工具使用
// @Description 同一工具每天只奖励一次 15 XP
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body UseToolRequest true "工具名称"
// @Success 200 {object} util.Response{data=service.EventResult}
// @Router /progression/tools/use [post]
func (c *ProgressionController) UseTool(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req UseToolRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.ProgressionService.UseTool(ctx.Request.Context(), userID, req.ToolName)
	c.respondEvent(ctx, res, err)
}

// UpdateStreak godoc
// @Summary 每日登录打卡
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.StreakResult}
// @Router /progression/streak [post]
func (c *ProgressionController) UpdateStreak(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	res, err := c.ProgressionService.UpdateStreak(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, res.Message, res)
}

// GetActivity godoc
// @Summary 最近的活动记录
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数，默认 20"
// @Success 200 {object} util.Response{data=[]model.ActivityLog}
// @Router /progression/activity [get]
func (c *ProgressionController) GetActivity(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	limit := util.ParseLimit(ctx.Query("limit"), 20, c.ActivityMaxLimit)
	logs, err := c.ProgressionService.ListActivity(ctx.Request.Context(), userID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, logs)
}
