package controller

import (
	"errors"
	"finguard_backend/internal/model"
	"finguard_backend/internal/service"
	"finguard_backend/internal/util"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	ReportService *service.ReportService
}

func NewReportController(reportService *service.ReportService) *ReportController {
	return &ReportController{ReportService: reportService}
}

// ReportForm 举报表单（multipart/form-data）
type ReportForm struct {
	Category    string  `form:"category" binding:"required,max=50"`
	Description string  `form:"description" binding:"max=5000"`
	Latitude    float64 `form:"lat" binding:"required"`
	Longitude   float64 `form:"lng" binding:"required"`
	City        string  `form:"city" binding:"max=100"`
	AmountLost  float64 `form:"amountLost" binding:"min=0"`
	OccurredAt  string  `form:"occurredAt"`
}

type ReportStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Submit godoc
// @Summary 提交诈骗举报
// @Tags 举报
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param category formData string true "诈骗类型"
// @Param description formData string false "描述"
// @Param lat formData number true "纬度"
// @Param lng formData number true "经度"
// @Param city formData string false "城市"
// @Param amountLost formData number false "损失金额"
// @Param occurredAt formData string false "发生日期 YYYY-MM-DD"
// @Param evidence formData file false "证据（图片或PDF）"
// @Success 201 {object} util.Response{data=service.ReportReceipt}
// @Failure 400 {object} util.Response
// @Failure 413 {object} util.Response
// @Router /reports [post]
func (c *ReportController) Submit(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var form ReportForm
	if err := ctx.ShouldBind(&form); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	in := service.ReportInput{
		Category:    form.Category,
		Description: form.Description,
		Latitude:    form.Latitude,
		Longitude:   form.Longitude,
		City:        form.City,
		AmountLost:  form.AmountLost,
	}
	if form.OccurredAt != "" {
		t, err := time.Parse(util.DateFormat, form.OccurredAt)
		if err != nil {
			util.BadRequest(ctx, "occurredAt must be YYYY-MM-DD")
			return
		}
		in.OccurredAt = &t
	}

	evidence, err := ctx.FormFile("evidence")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		util.BadRequest(ctx, err.Error())
		return
	}

	receipt, err := c.ReportService.Submit(ctx.Request.Context(), userID, in, evidence)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, receipt)
}

// Mine godoc
// @Summary 我的举报
// @Tags 举报
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量" default(20)
// @Success 200 {object} util.Response{data=[]model.ScamReport}
// @Router /reports/me [get]
func (c *ReportController) Mine(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	limit := util.ParseLimit(ctx.Query("limit"), 20, 100)
	reports, err := c.ReportService.Mine(ctx.Request.Context(), userID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, reports)
}

// Heatmap godoc
// @Summary 诈骗热力图
// @Tags 举报
// @Produce json
// @Security ApiKeyAuth
// @Param category query string false "诈骗类型"
// @Param days query int false "最近N天，0为全部"
// @Param precision query int false "坐标小数位数（1-4）" default(2)
// @Success 200 {object} util.Response{data=[]service.HeatCell}
// @Router /reports/heatmap [get]
func (c *ReportController) Heatmap(ctx *gin.Context) {
	days, _ := strconv.Atoi(ctx.Query("days"))
	precision, _ := strconv.Atoi(ctx.Query("precision"))
	cells, err := c.ReportService.Heatmap(ctx.Request.Context(), service.HeatmapQuery{
		Category:  ctx.Query("category"),
		Days:      days,
		Precision: precision,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, cells)
}

// UpdateStatus godoc
// @Summary 审核举报
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "举报ID"
// @Param body body ReportStatusRequest true "pending/verified/rejected"
// @Success 200 {object} util.Response{data=model.ScamReport}
// @Router /admin/reports/{id}/status [patch]
func (c *ReportController) UpdateStatus(ctx *gin.Context) {
	var req ReportStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	report, err := c.ReportService.UpdateStatus(ctx.Request.Context(), ctx.Param("id"), model.ReportStatus(req.Status))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
