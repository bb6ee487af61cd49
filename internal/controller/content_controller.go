package controller

import (
	"finguard_backend/internal/service"
	"finguard_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

type SubmitQuizRequest struct {
	// 按题目顺序给出所选选项下标
	Answers []int `json:"answers" binding:"required"`
}

type ScenarioChoiceRequest struct {
	ChoiceID string `json:"choiceId" binding:"required"`
}

// ListCourses godoc
// @Summary 课程列表（含个人进度）
// @Tags 内容
// @Produce json
// @Security ApiKeyAuth
// @Param category query string false "分类"
// @Success 200 {object} util.Response{data=[]service.CourseSummary}
// @Router /courses [get]
func (c *ContentController) ListCourses(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	courses, err := c.ContentService.ListCourses(ctx.Request.Context(), userID, ctx.Query("category"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetCourse godoc
// @Summary 课程详情
// @Tags 内容
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail}
// @Failure 404 {object} util.Response
// @Router /courses/{id} [get]
func (c *ContentController) GetCourse(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	course, err := c.ContentService.GetCourse(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// CompleteLesson godoc
// @Summary 完成课时
// @Tags 内容
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Success 200 {object} util.Response{data=service.EventResult}
// @Router /lessons/{id}/complete [post]
func (c *ContentController) CompleteLesson(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	res, err := c.ContentService.CompleteLesson(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, res.Message, res)
}

// ListQuizzes godoc
// @Summary 测验列表
// @Tags 内容
// @Produce json
// @Security ApiKeyAuth
// @Param courseId query string false "课程ID"
// @Success 200 {object} util.Response{data=[]model.Quiz}
// @Router /quizzes [get]
func (c *ContentController) ListQuizzes(ctx *gin.Context) {
	quizzes, err := c.ContentService.ListQuizzes(ctx.Request.Context(), ctx.Query("courseId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// GetQuiz godoc
// @Summary 获取测验题目（不含答案）
// @Tags 内容
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /quizzes/{id} [get]
func (c *ContentController) GetQuiz(ctx *gin.Context) {
	quiz, err := c.ContentService.GetQuiz(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// SubmitQuiz godoc
// @Summary 提交测验答案
// @Description 评分后记入进度；已完成过的测验只评分不发 XP
// @Tags 内容
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param body body SubmitQuizRequest true "答案"
// @Success 200 {object} util.Response{data=service.QuizSubmission}
// @Router /quizzes/{id}/submit [post]
func (c *ContentController) SubmitQuiz(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sub, err := c.ContentService.SubmitQuiz(ctx.Request.Context(), userID, ctx.Param("id"), req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if sub.AlreadyCompleted {
		util.Rejected(ctx, util.ErrAlreadyCompleted.Error(), sub)
		return
	}
	util.Success(ctx, sub)
}

// ListScenarios godoc
// @Summary 诈骗情景列表
// @Tags 内容
// @Produce json
// @Security ApiKeyAuth
// @Param category query string false "分类"
// @Success 200 {object} util.Response{data=[]model.Scenario}
// @Router /scenarios [get]
func (c *ContentController) ListScenarios(ctx *gin.Context) {
	scenarios, err := c.ContentService.ListScenarios(ctx.Request.Context(), ctx.Query("category"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, scenarios)
}

// GetScenario godoc
// @Summary 情景详情
// @Tags 内容
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "情景ID"
// @Success 200 {object} util.Response{data=model.Scenario}
// @Router /scenarios/{id} [get]
func (c *ContentController) GetScenario(ctx *gin.Context) {
	scenario, err := c.ContentService.GetScenario(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, scenario)
}

// SubmitScenarioChoice godoc
// @Summary 提交情景选择
// @Tags 内容
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "情景ID"
// @Param body body ScenarioChoiceRequest true "选项ID"
// @Success 200 {object} util.Response{data=service.ScenarioOutcome}
// @Router /scenarios/{id}/choose [post]
func (c *ContentController) SubmitScenarioChoice(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req ScenarioChoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	out, err := c.ContentService.SubmitScenarioChoice(ctx.Request.Context(), userID, ctx.Param("id"), req.ChoiceID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if out.AlreadyCompleted {
		util.Rejected(ctx, util.ErrAlreadyCompleted.Error(), out)
		return
	}
	util.Success(ctx, out)
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CourseInput true "课程"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /admin/courses [post]
func (c *ContentController) CreateCourse(ctx *gin.Context) {
	var req service.CourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.ContentService.CreateCourse(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// CreateQuiz godoc
// @Summary 创建测验
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuizInput true "测验"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Router /admin/quizzes [post]
func (c *ContentController) CreateQuiz(ctx *gin.Context) {
	var req service.QuizInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.ContentService.CreateQuiz(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// CreateScenario godoc
// @Summary 创建诈骗情景
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ScenarioInput true "情景"
// @Success 201 {object} util.Response{data=model.Scenario}
// @Router /admin/scenarios [post]
func (c *ContentController) CreateScenario(ctx *gin.Context) {
	var req service.ScenarioInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	scenario, err := c.ContentService.CreateScenario(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, scenario)
}
